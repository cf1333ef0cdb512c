package store

import "errors"

var (
	ErrCounterNotFound   = errors.New("counter not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrCounterFull       = errors.New("counter queue is full")
	ErrInvalidTransition = errors.New("invalid status transition")
)
