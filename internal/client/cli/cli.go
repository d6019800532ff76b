// Package cli implements the client commands on top of the local store
// and the replicators.
package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/docsync/internal/client/iocli"
	"github.com/iudanet/docsync/internal/client/replication"
	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/validation"
)

// Store локальная база клиента
type Store interface {
	storage.DocumentStore
	storage.CheckpointStore
	PendingCount(ctx context.Context, collection string) (int, error)
	ResetCheckpoint(ctx context.Context, collection string) error
}

//go:generate moq -out replicator_mock.go . Replicator

// Replicator репликация одной коллекции
type Replicator interface {
	Start(ctx context.Context) error
	Stop()
	SyncOnce(ctx context.Context) (replication.SyncResult, error)
	State() replication.State
	Collection() string
}

// ReplicatorFactory создает репликатор для коллекции
type ReplicatorFactory func(collection string) Replicator

type Cli struct {
	io            iocli.IO
	store         Store
	newReplicator ReplicatorFactory
}

func New(io iocli.IO, store Store, newReplicator ReplicatorFactory) *Cli {
	return &Cli{
		io:            io,
		store:         store,
		newReplicator: newReplicator,
	}
}

// validateCollections проверяет имена до обращения к базе или серверу
func validateCollections(collections []string) error {
	if len(collections) == 0 {
		return fmt.Errorf("at least one collection is required")
	}
	for _, c := range collections {
		if err := validation.ValidateCollection(c); err != nil {
			return err
		}
	}
	return nil
}
