// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package services

import "context"

// ContextRunner is satisfied by *websocket.Registry.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RegistryService supervises the connection registry's keepalive loop.
// When ctx ends the registry closes every open socket.
type RegistryService struct {
	registry ContextRunner
	name     string
}

// NewRegistryService wraps registry.
func NewRegistryService(registry ContextRunner) *RegistryService {
	return &RegistryService{registry: registry, name: "connection-registry"}
}

// Serve implements suture.Service.
func (s *RegistryService) Serve(ctx context.Context) error {
	return s.registry.RunWithContext(ctx)
}

func (s *RegistryService) String() string {
	return s.name
}
