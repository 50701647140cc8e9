package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrNoDSN is returned when no local database path is configured.
	ErrNoDSN = errors.New("no local database DSN configured")

	// ErrNoRemoteAddress is returned when either the HTTP mutation address
	// or the websocket subscription address is missing.
	ErrNoRemoteAddress = errors.New("remote store addresses are not configured")

	// ErrInvalidSyncSettings is returned when the drain interval or backoff
	// base is non-positive.
	ErrInvalidSyncSettings = errors.New("invalid sync drain/backoff settings")
)
