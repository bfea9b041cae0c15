// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the class of a domain failure. The HTTP layer maps it to a
// status code; the gateway copies it into the ERROR frame.
type ErrorKind string

const (
	KindBadRequest ErrorKind = "BAD_REQUEST"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindForbidden  ErrorKind = "FORBIDDEN"
	KindInternal   ErrorKind = "INTERNAL_ERROR"
)

// Sentinels for errors.Is against any DomainError of the matching kind.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

var kindSentinels = map[ErrorKind]error{
	KindBadRequest: ErrBadRequest,
	KindNotFound:   ErrNotFound,
	KindForbidden:  ErrForbidden,
	KindInternal:   ErrInternal,
}

// DomainError is returned by the chat and notification services. Message is
// safe to show to clients; Cause never is.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *DomainError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// WithDetails attaches client-visible details and returns e.
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// BadRequest covers self-chat, non-participant mentions, capacity and malformed input.
func BadRequest(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound covers missing chats, users and messages.
func NotFound(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden covers non-participant access, non-creator adds and non-owner
// notification mutations.
func Forbidden(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected persistence or transport failure.
func Internal(cause error, message string) *DomainError {
	return &DomainError{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf returns the kind of err; anything that is not a DomainError is internal.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Message
	}
	return "an internal error occurred"
}
