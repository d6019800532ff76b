package storage

import "errors"

// Common client storage errors
var (
	// ErrDocumentNotFound indicates that the document doesn't exist locally
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
