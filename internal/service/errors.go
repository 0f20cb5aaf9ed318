package service

import "errors"

var (
	// ErrInvalidInput marks a local validation failure. Nothing was sent to
	// the provider or written to the store.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedAIResponse marks a reply from the analysis provider that
	// could not be parsed or was missing required fields, as opposed to the
	// provider being unreachable.
	ErrMalformedAIResponse = errors.New("malformed AI response")

	// ErrFavoriteLimit is returned when an owner already has the maximum
	// number of favorite meals.
	ErrFavoriteLimit = errors.New("favorite limit reached")
)
