package cli

import (
	"context"
	"errors"
	"fmt"
)

// Sync выполняет однократный push и pull для каждой коллекции
func (c *Cli) Sync(ctx context.Context, collections []string) error {
	if err := validateCollections(collections); err != nil {
		return err
	}

	var errs []error
	for _, collection := range collections {
		r := c.newReplicator(collection)

		result, err := r.SyncOnce(ctx)
		if err != nil {
			c.io.Printf("✗ %s: %v\n", collection, err)
			errs = append(errs, fmt.Errorf("%s: %w", collection, err))
			continue
		}

		c.io.Printf("✓ %s: pushed %d, pulled %d\n", collection, result.Pushed, result.Pulled)
	}

	if len(errs) > 0 {
		return fmt.Errorf("synchronization failed: %w", errors.Join(errs...))
	}
	return nil
}

// Replicate запускает непрерывную репликацию до отмены ctx
func (c *Cli) Replicate(ctx context.Context, collections []string) error {
	if err := validateCollections(collections); err != nil {
		return err
	}

	replicators := make([]Replicator, 0, len(collections))
	defer func() {
		for _, r := range replicators {
			r.Stop()
		}
	}()

	for _, collection := range collections {
		r := c.newReplicator(collection)
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("failed to start replication of %s: %w", collection, err)
		}
		replicators = append(replicators, r)
	}

	c.io.Printf("Replicating %d collection(s). Press Ctrl+C to stop.\n", len(replicators))
	<-ctx.Done()

	for _, r := range replicators {
		state := r.State()
		c.io.Printf("%s: pushed %d, pulled %d, checkpoint %s\n",
			state.Collection, state.Pushed, state.Pulled, formatCheckpoint(state.Checkpoint.UpdatedAt, state.Checkpoint.ID))
	}
	return nil
}
