// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects and actions known to the policy.
const (
	ObjectGroupChat  = "chat:group"
	ObjectDirectChat = "chat:direct"
	ActionCreate     = "create"
)

// ErrNoAdapter is returned by LoadPolicy when the embedded policy is in use.
var ErrNoAdapter = errors.New("no policy adapter configured; using embedded policy")

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// ModelPath overrides the embedded model when the file exists.
	ModelPath string

	// PolicyPath switches to a file adapter when the file exists.
	PolicyPath string

	// AutoReload re-reads PolicyPath every ReloadInterval.
	AutoReload     bool
	ReloadInterval time.Duration

	// DefaultRole is checked when the caller carries no roles.
	DefaultRole string
}

// DefaultEnforcerConfig returns an embedded-policy configuration.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{
		ReloadInterval: 30 * time.Second,
		DefaultRole:    "member",
	}
}

// ConfigFromSecurity builds an EnforcerConfig from the security section.
func ConfigFromSecurity(cfg *config.SecurityConfig) *EnforcerConfig {
	out := DefaultEnforcerConfig()
	out.PolicyPath = cfg.PolicyPath
	out.AutoReload = cfg.PolicyPath != ""
	if cfg.DefaultRole != "" {
		out.DefaultRole = cfg.DefaultRole
	}
	return out
}

// Enforcer wraps a synced Casbin enforcer.
type Enforcer struct {
	config   *EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	fromFile bool
}

// NewEnforcer loads the model and policy. A nil config uses the defaults.
func NewEnforcer(cfg *EnforcerConfig) (*Enforcer, error) {
	if cfg == nil {
		cfg = DefaultEnforcerConfig()
	}

	var m model.Model
	var err error
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	fromFile := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if fromFile {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		if cfg.PolicyPath != "" {
			logging.Warn().Str("path", cfg.PolicyPath).Msg("Policy file not found, using embedded policy")
		}
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if cfg.AutoReload && fromFile && cfg.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(cfg.ReloadInterval)
	}

	return &Enforcer{config: cfg, enforcer: enforcer, fromFile: fromFile}, nil
}

// loadEmbeddedPolicy parses "p" and "g" lines of a policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch rule := parts[1:]; parts[0] {
		case "p":
			if len(rule) < 3 {
				return fmt.Errorf("malformed policy line %q", line)
			}
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) < 2 {
				return fmt.Errorf("malformed grouping line %q", line)
			}
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Enforce checks if the subject can perform the action on the object.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// EnforceWithRoles allows the action when the subject or any of its roles
// is allowed. With no roles the default role stands in.
func (e *Enforcer) EnforceWithRoles(subject string, roles []string, object, action string) (allowed bool, err error) {
	defer func() { recordDecision(object, action, allowed, err) }()

	if len(roles) == 0 && e.config.DefaultRole != "" {
		roles = []string{e.config.DefaultRole}
	}
	for _, sub := range append([]string{subject}, roles...) {
		if sub == "" {
			continue
		}
		ok, err := e.Enforce(sub, object, action)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// CanCreateGroup reports whether a caller with roles may start a group chat.
func (e *Enforcer) CanCreateGroup(userID string, roles []string) (bool, error) {
	return e.EnforceWithRoles(userID, roles, ObjectGroupChat, ActionCreate)
}

// AddPolicy adds a policy rule.
func (e *Enforcer) AddPolicy(subject, object, action string) (bool, error) {
	added, err := e.enforcer.AddPolicy(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to add policy: %w", err)
	}
	return added, nil
}

// RemovePolicy removes a policy rule.
func (e *Enforcer) RemovePolicy(subject, object, action string) (bool, error) {
	removed, err := e.enforcer.RemovePolicy(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to remove policy: %w", err)
	}
	return removed, nil
}

// AddRoleForUser assigns a role to a user.
func (e *Enforcer) AddRoleForUser(user, role string) (bool, error) {
	added, err := e.enforcer.AddGroupingPolicy(user, role)
	if err != nil {
		return false, fmt.Errorf("failed to add role: %w", err)
	}
	return added, nil
}

// LoadPolicy re-reads the policy file.
func (e *Enforcer) LoadPolicy() error {
	if !e.fromFile {
		return ErrNoAdapter
	}
	return e.enforcer.LoadPolicy()
}

// Close stops policy auto-reload.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
}

func recordDecision(object, action string, allowed bool, err error) {
	decision := "deny"
	switch {
	case err != nil:
		decision = "error"
	case allowed:
		decision = "allow"
	}
	metrics.AuthzDecisions.WithLabelValues(object, action, decision).Inc()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
