package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidJob         = errors.New("invalid job")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrWebhookMissing     = errors.New("generation webhook not configured")
	ErrProviderFailure    = errors.New("provider failure")
	ErrDuplicateOperation = errors.New("duplicate operation")
)
