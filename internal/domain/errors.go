package domain

import "errors"

// Sentinel errors. Use errors.Is to check.
var (
	ErrInvalidDifficulty   = errors.New("invalid difficulty")
	ErrInconsistentHistory = errors.New("last answered does not match history")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
)
