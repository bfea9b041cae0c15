// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package models

import "time"

// User is the slice of a marketplace account this service needs.
type User struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	IsActive    bool       `json:"isActive"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Usable reports whether the account may join or be added to chats.
func (u *User) Usable() bool {
	return u != nil && u.IsActive && u.DeletedAt == nil
}
