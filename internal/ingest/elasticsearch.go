package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/IshaanNene/lorekeeper/internal/config"
)

// Elasticsearch indexes each batch with one bulk request, using the
// document name as the document ID.
type Elasticsearch struct {
	client *es.Client
	index  string
	count  int
	logger *slog.Logger
}

type esDocument struct {
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	BatchID    string    `json:"batch_id"`
	IngestedAt time.Time `json:"ingested_at"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// NewElasticsearch creates a client for the configured cluster and pings it.
func NewElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig, logger *slog.Logger) (*Elasticsearch, error) {
	if cfg.Index == "" {
		return nil, errors.New("elasticsearch index is required")
	}
	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}

	return &Elasticsearch{
		client: client,
		index:  cfg.Index,
		logger: logger.With("component", "elasticsearch_ingest"),
	}, nil
}

func (e *Elasticsearch) Name() string { return "elasticsearch" }

func (e *Elasticsearch) Ingest(ctx context.Context, batch Batch) error {
	if len(batch.Documents) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range batch.Documents {
		meta := map[string]any{
			"index": map[string]any{"_index": e.index, "_id": doc.Name},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		body := esDocument{Name: doc.Name, Text: doc.Text, BatchID: batch.ID, IngestedAt: batch.CreatedAt}
		if err := enc.Encode(body); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(e.index),
	)
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk indexing error: %s", res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("error decoding bulk response: %w", err)
	}
	if br.Errors {
		for _, item := range br.Items {
			for _, result := range item {
				if result.Error != nil {
					return fmt.Errorf("bulk item %s failed: %s: %s", result.ID, result.Error.Type, result.Error.Reason)
				}
			}
		}
		return errors.New("bulk indexing reported errors")
	}

	e.count += len(batch.Documents)
	e.logger.Debug("batch indexed", "batch", batch.ID, "documents", len(batch.Documents), "total", e.count)
	return nil
}

func (e *Elasticsearch) Close(context.Context) error {
	e.logger.Info("elasticsearch ingester closing", "total_documents", e.count)
	return nil
}
