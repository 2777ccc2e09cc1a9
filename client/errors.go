package client

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrAccessKeyRequired = errors.New("access key is required")
	ErrSecretKeyRequired = errors.New("secret key is required")
	ErrConfigRequired    = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoNames     = errors.New("no document names provided")
	ErrEmptyPath   = errors.New("path is required")
	ErrEmptyName   = errors.New("document name is required")
	ErrIsDirectory = errors.New("directories cannot be uploaded")
)
