// Package services defines the business logic for users, alarms, and match
// handling. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

// Alarm-related errors.
var (
	// ErrSelfTarget is returned when a user declares their own handle as the
	// target (compared case-insensitively after trimming).
	ErrSelfTarget = errors.New("cannot declare your own handle")

	// ErrAlarmExists is returned when an active alarm already exists for the
	// same (user, target handle) pair. The user must withdraw it first.
	ErrAlarmExists = errors.New("alarm already registered")

	// ErrAlarmNotFound indicates that the requested alarm does not exist or
	// has already been withdrawn.
	ErrAlarmNotFound = errors.New("alarm not found")

	// ErrHandleRequired is returned when a declaration or handle registration
	// is missing a handle value.
	ErrHandleRequired = errors.New("handle is required")
)

// User-related errors.
var (
	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoSettingsChange is returned when a settings update names no flags.
	ErrNoSettingsChange = errors.New("no settings to change")
)
