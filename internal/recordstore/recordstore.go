// Package recordstore persists large out-of-band record batches in
// MongoDB, adapted from the teacher's internal/database/mongodb.go
// connection/index pattern but trimmed to the one collection MARCout
// needs: batches referenced by ID from a §6 UnifiedRequest instead of
// supplied inline.
package recordstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionBatches is the one Mongo collection this store uses.
const CollectionBatches = "record_batches"

// Batch is a named collection of album records submitted once and
// referenced by ID from subsequent export requests.
type Batch struct {
	ID        string           `bson:"_id"`
	Records   []map[string]any `bson:"records"`
	CreatedAt time.Time        `bson:"createdAt"`
}

// Store wraps the MongoDB client and database used for batch storage.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// New connects to MongoDB with the same pooling/timeout settings as
// the teacher's NewMongoDB.
func New(uri string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("recordstore: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("recordstore: ping: %w", err)
	}

	dbName := extractDBName(uri)
	if dbName == "" {
		dbName = "marcout"
	}

	return &Store{client: client, database: client.Database(dbName)}, nil
}

func extractDBName(uri string) string {
	lastSlash := strings.LastIndex(uri, "/")
	if lastSlash == -1 {
		return ""
	}
	rest := uri[lastSlash+1:]
	if q := strings.IndexByte(rest, '?'); q != -1 {
		rest = rest[:q]
	}
	return rest
}

// Initialize creates the batches collection's lookup index.
func (s *Store) Initialize(ctx context.Context) error {
	_, err := s.database.Collection(CollectionBatches).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("recordstore: initialize: %w", err)
	}
	return nil
}

// PutBatch upserts a batch of records under the given ID.
func (s *Store) PutBatch(ctx context.Context, id string, records []map[string]any) error {
	_, err := s.database.Collection(CollectionBatches).ReplaceOne(
		ctx,
		bson.M{"_id": id},
		Batch{ID: id, Records: records, CreatedAt: time.Now()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("recordstore: put batch %q: %w", id, err)
	}
	return nil
}

// GetBatch fetches a previously stored record batch by ID.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	var batch Batch
	err := s.database.Collection(CollectionBatches).FindOne(ctx, bson.M{"_id": id}).Decode(&batch)
	if err != nil {
		return nil, fmt.Errorf("recordstore: get batch %q: %w", id, err)
	}
	return &batch, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
