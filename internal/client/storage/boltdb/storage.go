package boltdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/clock"
)

var (
	// BoltDB bucket names. documents и pending содержат вложенный bucket на коллекцию
	bucketDocuments = []byte("documents")
	bucketPending   = []byte("pending")
	bucketMetadata  = []byte("metadata")
)

var (
	_ storage.DocumentStore   = (*Storage)(nil)
	_ storage.CheckpointStore = (*Storage)(nil)
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db          *bbolt.DB
	clock       *clock.Clock
	subscribers map[string]map[uint64]func(storage.Change)
	nextSubID   uint64
	mu          sync.RWMutex
	// dbMu защищает db от Close, пока репликатор еще работает
	dbMu sync.RWMutex
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{
		db:          db,
		clock:       clock.New(),
		subscribers: make(map[string]map[uint64]func(storage.Change)),
	}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if err := s.restoreClock(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
// Safe to call concurrently with other methods: they return ErrStorageClosed afterwards.
func (s *Storage) Close() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// database возвращает открытую базу или nil после Close
func (s *Storage) database() *bbolt.DB {
	s.dbMu.RLock()
	defer s.dbMu.RUnlock()
	return s.db
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketPending, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// collectionBucket возвращает вложенный bucket коллекции, создавая его в write транзакции
func collectionBucket(tx *bbolt.Tx, root []byte, collection string) (*bbolt.Bucket, error) {
	parent := tx.Bucket(root)
	if parent == nil {
		return nil, fmt.Errorf("%s bucket not found", root)
	}

	if !tx.Writable() {
		return parent.Bucket([]byte(collection)), nil
	}

	b, err := parent.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket for collection %s: %w", collection, err)
	}
	return b, nil
}

// Subscribe registers fn for committed mutations of the collection
func (s *Storage) Subscribe(collection string, fn func(storage.Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID

	if s.subscribers[collection] == nil {
		s.subscribers[collection] = make(map[uint64]func(storage.Change))
	}
	s.subscribers[collection][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers[collection], id)
		if len(s.subscribers[collection]) == 0 {
			delete(s.subscribers, collection)
		}
	}
}

// notify вызывается после commit транзакции
func (s *Storage) notify(changes []storage.Change) {
	if len(changes) == 0 {
		return
	}

	s.mu.RLock()
	fns := make([]func(storage.Change), 0, len(s.subscribers[changes[0].Collection]))
	for _, fn := range s.subscribers[changes[0].Collection] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}
