// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfarer/internal/config"
	"github.com/tomtom215/wayfarer/internal/logging"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

const breakerName = "identity-api"

// maxResponseBytes bounds how much of an identity response is read.
const maxResponseBytes = 4 << 20

// HTTPDirectory calls the identity service:
//
//	GET  {base}/users/{id}       -> 200 User | 404
//	POST {base}/users/lookup     {"ids": [...]} -> 200 {"users": [User...]}
//
// Calls go through a circuit breaker. A 404 counts as a successful call so
// lookups of unknown ids never open the circuit.
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[any]
}

// NewHTTPDirectory creates an identity service client from cfg.
func NewHTTPDirectory(cfg *config.DirectoryConfig) *HTTPDirectory {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDirectory{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		cb:      newBreaker(breakerName),
	}
}

// newBreaker opens after a 60% failure rate over at least 10 requests and
// probes again after 30 seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUserNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// FindUser implements Directory.
func (d *HTTPDirectory) FindUser(ctx context.Context, id string) (*models.User, error) {
	result, err := d.execute(func() (any, error) {
		var user models.User
		if err := d.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &user); err != nil {
			return nil, err
		}
		return &user, nil
	})
	if err != nil {
		return nil, err
	}
	user, ok := result.(*models.User)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return user, nil
}

type lookupRequest struct {
	IDs []string `json:"ids"`
}

type lookupResponse struct {
	Users []*models.User `json:"users"`
}

// FindUsers implements Directory with one lookup call.
func (d *HTTPDirectory) FindUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	result, err := d.execute(func() (any, error) {
		var resp lookupResponse
		if err := d.do(ctx, http.MethodPost, "/users/lookup", lookupRequest{IDs: ids}, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*lookupResponse)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	for _, u := range resp.Users {
		if u != nil && u.ID != "" {
			out[u.ID] = u
		}
	}
	return out, nil
}

// State returns the breaker state, for health reporting.
func (d *HTTPDirectory) State() string {
	return stateToString(d.cb.State())
}

func (d *HTTPDirectory) execute(fn func() (any, error)) (any, error) {
	result, err := d.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", breakerName).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, fmt.Errorf("identity service unavailable: %w", err)
	case err != nil && !errors.Is(err, ErrUserNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return nil, err
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return result, nil
}

func (d *HTTPDirectory) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.apiKey != "" {
		req.Header.Set("X-API-Key", d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("Failed to close identity response body")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity response: %w", err)
	}
	return nil
}

// stateToFloat converts a breaker state to the gauge value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var _ Directory = (*HTTPDirectory)(nil)
