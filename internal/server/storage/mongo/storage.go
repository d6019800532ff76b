package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
)

var _ storage.DocumentStore = (*Storage)(nil)

// Storage represents MongoDB storage implementation.
// Each replicated collection maps to a MongoDB collection of the same name.
type Storage struct {
	client  *mongo.Client
	db      *mongo.Database
	indexed sync.Map // collection name -> struct{}
}

// New connects to MongoDB and selects the database
func New(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Storage{
		client: client,
		db:     client.Database(database),
	}, nil
}

// Close disconnects the client
func (s *Storage) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ping checks the primary is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// collection returns the collection, creating its indexes on first use
func (s *Storage) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	coll := s.db.Collection(name)
	if _, ok := s.indexed.Load(name); ok {
		return coll, nil
	}

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: models.FieldID, Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: models.FieldUpdatedAt, Value: 1}, {Key: models.FieldID, Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes for %s: %w", name, err)
	}

	s.indexed.Store(name, struct{}{})
	return coll, nil
}

// Pull returns up to limit documents after cp in (updatedAt, id) order
func (s *Storage) Pull(ctx context.Context, collection string, cp models.Checkpoint, limit int) ([]models.Document, error) {
	coll, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}

	filter := bson.M{}
	if cp.UpdatedAt != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{models.FieldUpdatedAt: bson.M{"$gt": cp.UpdatedAt}},
			bson.M{models.FieldUpdatedAt: cp.UpdatedAt, models.FieldID: bson.M{"$gt": cp.ID}},
		}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: models.FieldUpdatedAt, Value: 1}, {Key: models.FieldID, Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 0})

	return s.find(ctx, coll, filter, opts)
}

// BulkWrite applies docs with one ordered bulk operation
func (s *Storage) BulkWrite(ctx context.Context, collection string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	coll, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		if doc.UpdatedAt == "" {
			return fmt.Errorf("document %s: %w", doc.ID, storage.ErrMissingUpdatedAt)
		}
		if doc.Deleted {
			doc = doc.Tombstone()
		}

		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{models.FieldID: doc.ID}).
			SetReplacement(doc.ToMap()).
			SetUpsert(true))
	}

	if _, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk write failed: %w", err)
	}

	return nil
}

// Get retrieves a single live document by ID
func (s *Storage) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	coll, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}

	var raw bson.M
	err = coll.FindOne(ctx, bson.M{models.FieldID: id}, options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc, err := models.FromMap(raw)
	if err != nil {
		return nil, err
	}
	if doc.Deleted {
		return nil, storage.ErrDocumentNotFound
	}

	return &doc, nil
}

// Stats returns live document counts and samples for every collection
func (s *Storage) Stats(ctx context.Context, sampleSize int) (map[string]storage.CollectionStats, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	live := bson.M{models.FieldDeleted: bson.M{"$ne": true}}
	result := make(map[string]storage.CollectionStats, len(names))

	for _, name := range names {
		coll := s.db.Collection(name)

		count, err := coll.CountDocuments(ctx, live)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}

		opts := options.Find().
			SetSort(bson.D{{Key: models.FieldUpdatedAt, Value: 1}, {Key: models.FieldID, Value: 1}}).
			SetLimit(int64(sampleSize)).
			SetProjection(bson.M{"_id": 0})
		sample, err := s.find(ctx, coll, live, opts)
		if err != nil {
			return nil, err
		}

		result[name] = storage.CollectionStats{Count: count, Sample: sample}
	}

	return result, nil
}

func (s *Storage) find(ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions) ([]models.Document, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	docs := make([]models.Document, 0, len(raw))
	for _, r := range raw {
		doc, err := models.FromMap(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}
