package domain

import "errors"

// Domain-level errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrValidationFailed = errors.New("validation failed")
	ErrNodeNotFound     = errors.New("node not found")
	ErrNodeOffline      = errors.New("node offline")
	ErrCacheError       = errors.New("cache error")
)
