package models

import "errors"

var (
	// ErrValidation marks malformed subscription or transaction data.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when a follower acts on a subscription it does not own.
	ErrForbidden = errors.New("not the subscription owner")
)
