package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
)

const checkpointKeyPrefix = "checkpoint:"

// SaveCheckpoint saves the replication checkpoint of the collection
func (s *Storage) SaveCheckpoint(ctx context.Context, collection string, cp models.Checkpoint) error {
	db := s.database()
	if db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	return db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(checkpointKeyPrefix+collection), data); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		return nil
	})
}

// LoadCheckpoint retrieves the replication checkpoint of the collection
// Returns a zero checkpoint if the collection was never pulled
func (s *Storage) LoadCheckpoint(ctx context.Context, collection string) (models.Checkpoint, error) {
	db := s.database()
	if db == nil {
		return models.Checkpoint{}, storage.ErrStorageClosed
	}

	var cp models.Checkpoint

	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(checkpointKeyPrefix + collection))
		if data == nil {
			// Первая синхронизация - начинаем с начала
			return nil
		}

		return json.Unmarshal(data, &cp)
	})
	if err != nil {
		return models.Checkpoint{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return cp, nil
}

// ResetCheckpoint forgets replication progress so the next pull starts over
func (s *Storage) ResetCheckpoint(ctx context.Context, collection string) error {
	db := s.database()
	if db == nil {
		return storage.ErrStorageClosed
	}

	return db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		return bucket.Delete([]byte(checkpointKeyPrefix + collection))
	})
}

// restoreClock продвигает часы до сохраненных checkpoint, чтобы после
// перезапуска локальные правки не получили метки раньше уже полученных
func (s *Storage) restoreClock() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketMetadata).Cursor()
		prefix := []byte(checkpointKeyPrefix)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var cp models.Checkpoint
			if err := json.Unmarshal(v, &cp); err != nil {
				return fmt.Errorf("failed to decode checkpoint %s: %w", k, err)
			}
			s.clock.Observe(cp.UpdatedAt)
		}
		return nil
	})
}
