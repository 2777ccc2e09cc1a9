package keybackend

import "errors"

var (
	// ErrKeyNotFound is returned by Lookup for an unknown or empty access key.
	ErrKeyNotFound = errors.New("access key not found")
	// ErrInvalidKeyPair is returned when a configured pair lacks its access or secret half.
	ErrInvalidKeyPair = errors.New("invalid key pair")
)
