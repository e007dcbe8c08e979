package entity

import "errors"

var (
	// ErrInvalidURL is returned when the original URL fails validation.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidShortCode is returned when a custom short code is empty, too
	// long, or contains characters outside the base62 alphabet.
	ErrInvalidShortCode = errors.New("invalid short code")
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when resolving a short code whose expiry time has passed.
	ErrURLExpired = errors.New("url expired")
	// ErrDuplicateKey is returned by record stores when an insert hits an
	// existing short code. The service layer decides whether that means a
	// custom-code collision or a generator retry.
	ErrDuplicateKey = errors.New("duplicate key")
)
