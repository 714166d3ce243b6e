package config

import "errors"

// Validation errors returned by [Config.validate].
var (
	// ErrInvalidServerConfigs indicates a missing listen address or shutdown timeout.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidStorageConfigs indicates a missing database URL.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidUploadConfigs indicates bad upload limits or backend settings.
	ErrInvalidUploadConfigs = errors.New("invalid upload configuration")
	// ErrInvalidSessionConfigs indicates non-positive session durations.
	ErrInvalidSessionConfigs = errors.New("invalid session configuration")
)
