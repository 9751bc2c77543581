package repository

import "errors"

// Sentinel kinds for roster store errors.
var (
	ErrNotFound      = errors.New("roster entry not found")
	ErrAlreadyExists = errors.New("roster entry already exists")
	ErrNotConfigured = errors.New("roster store is not configured")
)
