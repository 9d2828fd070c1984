package domain

import "errors"

var (
	// ErrUnauthorized indicates a missing or malformed credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates a valid credential whose subject may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates an unknown record id or an unknown, expired or consumed token.
	ErrNotFound = errors.New("not found")
	// ErrBadPayload indicates an inbound event that could not be decoded.
	ErrBadPayload = errors.New("bad payload")
	// ErrConflict indicates a subscription token that was already resolved.
	ErrConflict = errors.New("conflict")
	// ErrMissingReceiver is returned when an event carries no receiver identity.
	ErrMissingReceiver = errors.New("missing receiver id")
	// ErrChannelClosed is returned by a subscription once its channel is closed and drained.
	ErrChannelClosed = errors.New("channel closed")
)
