// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package database

import (
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/wayfarer/internal/logging"
)

var (
	// ErrChatNotFound is returned when a chat id does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrDirectChatExists is returned when the direct_key for a user pair is
	// already taken; the caller re-reads the existing chat.
	ErrDirectChatExists = errors.New("direct chat already exists")

	// ErrParticipantNotFound is returned when a user is not a participant.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrAlreadyParticipant is returned when adding an existing member.
	ErrAlreadyParticipant = errors.New("user is already a participant")

	// ErrChatFull is returned when a group is at its participant cap.
	ErrChatFull = errors.New("chat is at participant capacity")

	// ErrMessageNotFound is returned when a message id is not in the chat.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotificationNotFound is returned when a notification id does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUserNotFound is returned when the user mirror has no such id.
	ErrUserNotFound = errors.New("user not found")
)

// isConstraintViolation checks if an error is a DuckDB PRIMARY KEY or
// UNIQUE violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Constraint Error") ||
		strings.Contains(errStr, "Duplicate key") ||
		strings.Contains(errStr, "violates primary key constraint") ||
		strings.Contains(errStr, "violates unique constraint")
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "Conflict on tuple deletion")
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollbackQuietly rolls back a transaction whose error is already being returned
func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Failed to roll back transaction")
	}
}
