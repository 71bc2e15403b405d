package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/lorekeeper/internal/config"
)

// mongoDocument is the stored shape of one corpus document.
type mongoDocument struct {
	Name       string    `bson:"_id"`
	Text       string    `bson:"text"`
	BatchID    string    `bson:"batch_id"`
	IngestedAt time.Time `bson:"ingested_at"`
}

// Mongo upserts each batch into a MongoDB collection keyed by document name.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	count      int
	logger     *slog.Logger
}

// NewMongo connects to the configured deployment.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &Mongo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
		logger:     logger.With("component", "mongo_ingest"),
	}, nil
}

func (m *Mongo) Name() string { return "mongodb" }

func (m *Mongo) Ingest(ctx context.Context, batch Batch) error {
	if len(batch.Documents) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, len(batch.Documents))
	for i, doc := range batch.Documents {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.Name}).
			SetReplacement(mongoDocument{
				Name:       doc.Name,
				Text:       doc.Text,
				BatchID:    batch.ID,
				IngestedAt: batch.CreatedAt,
			}).
			SetUpsert(true)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	res, err := m.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("mongodb bulk write: %w", err)
	}

	m.count += len(batch.Documents)
	m.logger.Debug("batch stored in mongodb",
		"batch", batch.ID,
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
		"total", m.count,
	)
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	m.logger.Info("mongodb ingester closing", "total_documents", m.count)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
