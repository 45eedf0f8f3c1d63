// Package store persists prediction records in MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("record id already exists")
)

// InitError means the store could not be reached or prepared at startup.
type InitError struct {
	URI string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("could not connect to MongoDB at %s: %v", e.URI, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

type Config struct {
	URI        string
	Database   string
	Collection string
	// ServerSelectionTimeout bounds how long Connect waits for a server.
	ServerSelectionTimeout time.Duration
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// Connect opens the process-wide client, pings the server and makes sure
// the unique index on id exists.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	timeout := cfg.ServerSelectionTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, &InitError{URI: cfg.URI, Err: err}
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, &InitError{URI: cfg.URI, Err: err}
	}

	s := New(client.Database(cfg.Database).Collection(cfg.Collection), logger)
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, &InitError{URI: cfg.URI, Err: err}
	}

	s.logger.Info("connected to MongoDB",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection))
	return s, nil
}

// New wraps an existing collection.
func New(coll *mongo.Collection, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{coll: coll, logger: logger}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("id_unique"),
	})
	if err != nil {
		return fmt.Errorf("create id index: %w", err)
	}
	return nil
}

// Save inserts rec. A duplicate id is reported as ErrDuplicateID.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if _, err := s.coll.InsertOne(ctx, toDoc(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Projection returns the fields Get excludes: always _id, and imageData
// unless the image was requested.
func Projection(includeImage bool) bson.D {
	p := bson.D{{Key: "_id", Value: 0}}
	if !includeImage {
		p = append(p, bson.E{Key: "imageData", Value: 0})
	}
	return p
}

// Get fetches the record with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string, includeImage bool) (*Document, error) {
	var doc recordDoc
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "id", Value: id}},
		options.FindOne().SetProjection(Projection(includeImage)),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find record %s: %w", id, err)
	}
	return doc.document(includeImage), nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
