package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

//go:generate moq -out documentstore_mock.go . DocumentStore

// DocumentStore defines the authoritative document store used by the sync server.
// Single-document writes must be atomic; no cross-document transaction is assumed
// by callers beyond BulkWrite reporting one error for the whole request.
type DocumentStore interface {
	// Pull returns up to limit documents (tombstones included) of the collection
	// strictly after cp, ordered by (updatedAt, id) ascending:
	// updatedAt > cp.updatedAt OR (updatedAt = cp.updatedAt AND id > cp.id).
	// A checkpoint with empty updatedAt starts from the beginning.
	Pull(ctx context.Context, collection string, cp models.Checkpoint, limit int) ([]models.Document, error)

	// BulkWrite applies docs as full-replace upserts by id. Tombstones replace
	// the stored document with a deletion marker. Documents must already carry
	// updatedAt. Either every document is applied or an error is returned.
	BulkWrite(ctx context.Context, collection string, docs []models.Document) error

	// Get returns the live document with the given id.
	// Returns ErrDocumentNotFound if it doesn't exist or is deleted
	Get(ctx context.Context, collection, id string) (*models.Document, error)

	// Stats returns live document counts and a few sample documents per collection
	Stats(ctx context.Context, sampleSize int) (map[string]CollectionStats, error)

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend connection
	Close() error
}

// CollectionStats summary of a collection
type CollectionStats struct {
	Sample []models.Document
	Count  int64
}
