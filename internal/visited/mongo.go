package visited

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stateDocument is the single document holding one visited set.
type stateDocument struct {
	ID        string    `bson:"_id"`
	Locators  []string  `bson:"locators"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoBackend keeps the set in one MongoDB document, replaced on every save.
// A document is capped at 16MB, which holds well over 100k locators.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	key        string
	logger     *slog.Logger
}

// NewMongoBackend connects to uri and stores state under key in database.collection.
func NewMongoBackend(ctx context.Context, uri, database, collection, key string, logger *slog.Logger) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(database).Collection(collection),
		key:        key,
		logger:     logger.With("component", "mongo_visited"),
	}, nil
}

func (b *MongoBackend) Name() string { return "mongodb" }

func (b *MongoBackend) Load(ctx context.Context) ([]string, error) {
	var doc stateDocument
	err := b.collection.FindOne(ctx, bson.M{"_id": b.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find visited state: %w", err)
	}
	return doc.Locators, nil
}

func (b *MongoBackend) Save(ctx context.Context, keys []string) error {
	doc := stateDocument{ID: b.key, Locators: keys, UpdatedAt: time.Now().UTC()}
	if doc.Locators == nil {
		doc.Locators = []string{}
	}
	_, err := b.collection.ReplaceOne(ctx, bson.M{"_id": b.key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb replace visited state: %w", err)
	}
	b.logger.Debug("visited state replaced", "key", b.key, "count", len(keys))
	return nil
}

func (b *MongoBackend) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
