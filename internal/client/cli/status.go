package cli

import (
	"context"
	"fmt"
)

// Status печатает checkpoint и очередь push каждой коллекции
func (c *Cli) Status(ctx context.Context, collections []string) error {
	if err := validateCollections(collections); err != nil {
		return err
	}

	c.io.Println("=== Replication Status ===")

	for _, collection := range collections {
		cp, err := c.store.LoadCheckpoint(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}

		docs, err := c.store.List(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		pending, err := c.store.PendingCount(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to count pending changes: %w", err)
		}

		c.io.Println()
		c.io.Printf("Collection: %s\n", collection)
		c.io.Printf("Checkpoint: %s\n", formatCheckpoint(cp.UpdatedAt, cp.ID))
		c.io.Printf("Documents:  %d\n", len(docs))
		if pending > 0 {
			c.io.Printf("⚠️  Pending push: %d change(s)\n", pending)
		} else {
			c.io.Println("✓ Nothing to push")
		}
	}

	return nil
}

// Reset забывает checkpoint: следующий sync заново получит всю коллекцию
func (c *Cli) Reset(ctx context.Context, collections []string) error {
	if err := validateCollections(collections); err != nil {
		return err
	}

	for _, collection := range collections {
		if err := c.store.ResetCheckpoint(ctx, collection); err != nil {
			return fmt.Errorf("failed to reset checkpoint: %w", err)
		}
		c.io.Printf("✓ %s will be pulled from the beginning\n", collection)
	}
	return nil
}

func formatCheckpoint(updatedAt, id string) string {
	if updatedAt == "" {
		return "(never pulled)"
	}
	return updatedAt + " / " + id
}
