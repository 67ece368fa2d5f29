// internal/services/errors.go
package services

import "errors"

var (
	// ErrInvalidArgument rejects malformed input before any store call.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrValidation      = errors.New("validation failed")
	ErrUserExists      = errors.New("user already exists")
	ErrAssetExists     = errors.New("asset already exists")
)
