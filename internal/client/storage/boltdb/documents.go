package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
)

// Get retrieves a local document by ID
func (s *Storage) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	db := s.database()
	if db == nil {
		return nil, storage.ErrStorageClosed
	}

	var doc *models.Document

	err := db.View(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketDocuments, collection)
		if err != nil {
			return err
		}
		if bucket == nil {
			return storage.ErrDocumentNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrDocumentNotFound
		}

		doc = &models.Document{}
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("failed to unmarshal document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// List returns all local documents ordered by (updatedAt, id)
func (s *Storage) List(ctx context.Context, collection string) ([]models.Document, error) {
	db := s.database()
	if db == nil {
		return nil, storage.ErrStorageClosed
	}

	var docs []models.Document

	err := db.View(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketDocuments, collection)
		if err != nil {
			return err
		}
		if bucket == nil {
			// Коллекция еще не создана - возвращаем пустой список
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var doc models.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal document %s: %w", k, err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	models.SortDocuments(docs)
	return docs, nil
}

// Put stores a local edit and queues it for push
func (s *Storage) Put(ctx context.Context, collection string, doc models.Document) (models.Document, error) {
	db := s.database()
	if db == nil {
		return models.Document{}, storage.ErrStorageClosed
	}

	doc = doc.Clone()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.UpdatedAt = models.FormatTime(s.clock.Tick())
	doc.Deleted = false

	data, err := json.Marshal(doc)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to marshal document: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketDocuments, collection)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(doc.ID), data); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		return enqueue(tx, collection, doc)
	})
	if err != nil {
		return models.Document{}, fmt.Errorf("transaction failed: %w", err)
	}

	s.notify([]storage.Change{{Collection: collection, Document: doc, Origin: storage.OriginLocal}})
	return doc, nil
}

// Delete removes the local document and queues its tombstone
func (s *Storage) Delete(ctx context.Context, collection, id string) (models.Document, error) {
	db := s.database()
	if db == nil {
		return models.Document{}, storage.ErrStorageClosed
	}

	tombstone := models.Document{
		ID:        id,
		UpdatedAt: models.FormatTime(s.clock.Tick()),
		Deleted:   true,
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketDocuments, collection)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(id)) == nil {
			return storage.ErrDocumentNotFound
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return enqueue(tx, collection, tombstone)
	})
	if err != nil {
		return models.Document{}, err
	}

	s.notify([]storage.Change{{Collection: collection, Document: tombstone, Origin: storage.OriginLocal}})
	return tombstone, nil
}

// ApplyRemote applies a pulled batch in one transaction
func (s *Storage) ApplyRemote(ctx context.Context, collection string, docs []models.Document) error {
	db := s.database()
	if db == nil {
		return storage.ErrStorageClosed
	}
	if len(docs) == 0 {
		return nil
	}

	changes := make([]storage.Change, 0, len(docs))

	err := db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketDocuments, collection)
		if err != nil {
			return err
		}

		for _, doc := range docs {
			// Следующая локальная правка документа получит метку позже серверной
			s.clock.Observe(doc.UpdatedAt)

			// Состояние сервера побеждает безусловно
			if doc.Deleted {
				if err := bucket.Delete([]byte(doc.ID)); err != nil {
					return fmt.Errorf("failed to delete document %s: %w", doc.ID, err)
				}
				changes = append(changes, storage.Change{Collection: collection, Document: doc.Tombstone(), Origin: storage.OriginRemote})
				continue
			}

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
			}
			if err := bucket.Put([]byte(doc.ID), data); err != nil {
				return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
			}
			changes = append(changes, storage.Change{Collection: collection, Document: doc, Origin: storage.OriginRemote})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply remote batch: %w", err)
	}

	s.notify(changes)
	return nil
}

// enqueue записывает состояние документа в очередь push.
// Предыдущее ожидающее состояние того же id заменяется.
func enqueue(tx *bbolt.Tx, collection string, doc models.Document) error {
	bucket, err := collectionBucket(tx, bucketPending, collection)
	if err != nil {
		return err
	}

	seq, err := bucket.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	data, err := json.Marshal(storage.PendingChange{Document: doc, Seq: seq})
	if err != nil {
		return fmt.Errorf("failed to marshal pending change: %w", err)
	}

	if err := bucket.Put([]byte(doc.ID), data); err != nil {
		return fmt.Errorf("failed to queue change: %w", err)
	}
	return nil
}

// Pending returns queued local states ordered by edit sequence
func (s *Storage) Pending(ctx context.Context, collection string) ([]storage.PendingChange, error) {
	db := s.database()
	if db == nil {
		return nil, storage.ErrStorageClosed
	}

	var pending []storage.PendingChange

	err := db.View(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketPending, collection)
		if err != nil || bucket == nil {
			return err
		}

		return bucket.ForEach(func(k, v []byte) error {
			var change storage.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal pending change %s: %w", k, err)
			}
			pending = append(pending, change)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pending changes: %w", err)
	}

	slices.SortFunc(pending, func(a, b storage.PendingChange) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return pending, nil
}

// Acknowledge removes pushed states whose sequence is still current
func (s *Storage) Acknowledge(ctx context.Context, collection string, changes []storage.PendingChange) error {
	db := s.database()
	if db == nil {
		return storage.ErrStorageClosed
	}
	if len(changes) == 0 {
		return nil
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketPending, collection)
		if err != nil {
			return err
		}

		for _, c := range changes {
			key := []byte(c.Document.ID)
			data := bucket.Get(key)
			if data == nil {
				continue
			}

			var current storage.PendingChange
			if err := json.Unmarshal(data, &current); err != nil {
				return fmt.Errorf("failed to unmarshal pending change %s: %w", key, err)
			}
			// Новая правка пришла во время push - остается в очереди
			if current.Seq != c.Seq {
				continue
			}
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to acknowledge %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to acknowledge pending changes: %w", err)
	}
	return nil
}

// PendingCount returns the number of queued local states
func (s *Storage) PendingCount(ctx context.Context, collection string) (int, error) {
	db := s.database()
	if db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := db.View(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, bucketPending, collection)
		if err != nil || bucket == nil {
			return err
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return count, nil
}
