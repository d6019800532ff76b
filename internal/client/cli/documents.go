package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/validation"
)

// Put создает или перезаписывает документ локально и ставит его в очередь push
func (c *Cli) Put(ctx context.Context, collection, id string, pairs []string) error {
	if err := validation.ValidateCollection(collection); err != nil {
		return err
	}

	fields, err := ParseFields(pairs)
	if err != nil {
		return err
	}

	doc, err := c.store.Put(ctx, collection, models.Document{ID: id, Fields: fields})
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	c.io.Printf("✓ Saved %s/%s at %s\n", collection, doc.ID, doc.UpdatedAt)
	c.io.Println("Run 'docsync-client sync " + collection + "' to push it to the server.")
	return nil
}

// Delete помечает документ удаленным. Без force запрашивает подтверждение.
func (c *Cli) Delete(ctx context.Context, collection, id string, force bool) error {
	if err := validation.ValidateCollection(collection); err != nil {
		return err
	}

	doc, err := c.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return fmt.Errorf("document not found: %s/%s", collection, id)
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	if !force {
		c.io.Println("About to delete:")
		c.io.Printf("  %s  %s\n", doc.ID, formatFields(doc.Fields))

		confirm, err := c.io.ReadInput("Are you sure? (yes/no): ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if confirm != "yes" && confirm != "y" {
			c.io.Println("Deletion cancelled.")
			return nil
		}
	}

	if _, err := c.store.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	c.io.Printf("✓ Deleted %s/%s\n", collection, id)
	return nil
}

// List печатает документы коллекции в порядке checkpoint
func (c *Cli) List(ctx context.Context, collection string) error {
	if err := validation.ValidateCollection(collection); err != nil {
		return err
	}

	docs, err := c.store.List(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		c.io.Printf("No documents in %s.\n", collection)
		return nil
	}

	c.io.Printf("Found %d document(s) in %s:\n", len(docs), collection)
	for _, doc := range docs {
		c.io.Printf("%s  %s  %s\n", doc.ID, doc.UpdatedAt, formatFields(doc.Fields))
	}
	return nil
}
