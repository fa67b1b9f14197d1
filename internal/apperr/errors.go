// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid payload")
)
