package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

// Origin tells who produced a local mutation
type Origin string

const (
	// OriginLocal mutation made by the user of this replica
	OriginLocal Origin = "local"
	// OriginRemote mutation applied from a pull
	OriginRemote Origin = "remote"
)

// Change describes one committed mutation of the local store.
// For deletions Document is the tombstone.
type Change struct {
	Document   models.Document
	Collection string
	Origin     Origin
}

// PendingChange local state waiting to be pushed. Seq grows with every local
// edit of the id, so an acknowledgement only clears the exact state that was sent.
type PendingChange struct {
	Document models.Document `json:"document"`
	Seq      uint64          `json:"seq"`
}

// DocumentStore defines the local per-replica document store
type DocumentStore interface {
	// Get returns the local document. Returns ErrDocumentNotFound if absent
	Get(ctx context.Context, collection, id string) (*models.Document, error)

	// List returns all local documents ordered by (updatedAt, id)
	List(ctx context.Context, collection string) ([]models.Document, error)

	// Put stores a local edit: assigns an id if empty, stamps updatedAt,
	// queues the state for push and notifies subscribers with OriginLocal
	Put(ctx context.Context, collection string, doc models.Document) (models.Document, error)

	// Delete removes the local document and queues its tombstone for push
	Delete(ctx context.Context, collection, id string) (models.Document, error)

	// ApplyRemote applies a pulled batch in one transaction: live documents
	// replace local ones, tombstones remove them. The push queue is not touched.
	ApplyRemote(ctx context.Context, collection string, docs []models.Document) error

	// Pending returns queued local states in queue order
	Pending(ctx context.Context, collection string) ([]PendingChange, error)

	// Acknowledge removes pushed states unless the id was edited again since
	Acknowledge(ctx context.Context, collection string, changes []PendingChange) error

	// Subscribe registers fn for committed mutations of the collection.
	// fn runs synchronously after commit and must not block.
	Subscribe(collection string, fn func(Change)) (unsubscribe func())
}

// CheckpointStore persists replication progress per collection
type CheckpointStore interface {
	// LoadCheckpoint returns the saved checkpoint or a zero one
	LoadCheckpoint(ctx context.Context, collection string) (models.Checkpoint, error)

	// SaveCheckpoint stores the checkpoint of the collection
	SaveCheckpoint(ctx context.Context, collection string, cp models.Checkpoint) error
}
