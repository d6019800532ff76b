package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
)

var _ storage.DocumentStore = (*Storage)(nil)

// Pull returns up to limit documents after cp in (updatedAt, id) order
func (s *Storage) Pull(ctx context.Context, collection string, cp models.Checkpoint, limit int) ([]models.Document, error) {
	query := `
		SELECT id, updated_at, deleted, data
		FROM documents
		WHERE collection = ?
		  AND (? = '' OR updated_at > ? OR (updated_at = ? AND id > ?))
		ORDER BY updated_at ASC, id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query,
		collection,
		cp.UpdatedAt, cp.UpdatedAt, cp.UpdatedAt, cp.ID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents since checkpoint: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanDocuments(rows)
}

// BulkWrite applies docs in a single transaction
func (s *Storage) BulkWrite(ctx context.Context, collection string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, updated_at, deleted, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			updated_at = excluded.updated_at,
			deleted    = excluded.deleted,
			data       = excluded.data
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, doc := range docs {
		if doc.UpdatedAt == "" {
			return fmt.Errorf("document %s: %w", doc.ID, storage.ErrMissingUpdatedAt)
		}

		// Tombstone хранит только id и updatedAt
		if doc.Deleted {
			doc = doc.Tombstone()
		}

		data, err := encodeFields(doc.Fields)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}

		if _, err := stmt.ExecContext(ctx, collection, doc.ID, doc.UpdatedAt, boolToInt(doc.Deleted), data); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a single live document by ID
// Returns ErrDocumentNotFound if document doesn't exist or is deleted
func (s *Storage) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query := `
		SELECT id, updated_at, deleted, data
		FROM documents
		WHERE collection = ? AND id = ?
	`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if doc.Deleted {
		return nil, storage.ErrDocumentNotFound
	}

	return &doc, nil
}

// Stats returns live document counts and samples for every collection
func (s *Storage) Stats(ctx context.Context, sampleSize int) (map[string]storage.CollectionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, SUM(CASE WHEN deleted = 0 THEN 1 ELSE 0 END)
		FROM documents
		GROUP BY collection
		ORDER BY collection
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan collection count: %w", err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	_ = rows.Close()

	result := make(map[string]storage.CollectionStats, len(counts))
	for name, count := range counts {
		sample, err := s.sample(ctx, name, sampleSize)
		if err != nil {
			return nil, err
		}
		result[name] = storage.CollectionStats{Count: count, Sample: sample}
	}

	return result, nil
}

func (s *Storage) sample(ctx context.Context, collection string, n int) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, updated_at, deleted, data
		FROM documents
		WHERE collection = ? AND deleted = 0
		ORDER BY updated_at ASC, id ASC
		LIMIT ?
	`, collection, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query sample documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanDocuments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (models.Document, error) {
	var (
		doc     models.Document
		deleted int
		data    string
	)

	if err := row.Scan(&doc.ID, &doc.UpdatedAt, &deleted, &data); err != nil {
		return models.Document{}, err
	}

	doc.Deleted = intToBool(deleted)

	fields, err := decodeFields(data)
	if err != nil {
		return models.Document{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	doc.Fields = fields

	return doc, nil
}

// scanDocuments is a helper function to scan multiple documents from rows
func scanDocuments(rows *sql.Rows) ([]models.Document, error) {
	docs := make([]models.Document, 0)

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return docs, nil
}

func encodeFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(data string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// Helper functions for bool/int conversion
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
