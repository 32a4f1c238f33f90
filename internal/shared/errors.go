package shared

import "errors"

var (
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates invalid client input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique constraint conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInsufficientStock is returned when a sale would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)
