package config

import "errors"

var (
	// ErrInvalidConfig configuration failed validation
	ErrInvalidConfig = errors.New("invalid configuration")
)
