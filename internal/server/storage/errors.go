package storage

import "errors"

// Common storage errors
var (
	// ErrDocumentNotFound indicates that document was not found or is deleted
	ErrDocumentNotFound = errors.New("document not found")

	// ErrMissingUpdatedAt indicates that a document reached the store unstamped
	ErrMissingUpdatedAt = errors.New("document updatedAt is not set")
)
