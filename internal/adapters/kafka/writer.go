package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

var _ ports.EventPublisher = (*Writer)(nil)

// Writer publishes completed searches to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSearch writes rec keyed by its session so one session's searches
// stay ordered on a partition.
func (w *Writer) PublishSearch(ctx context.Context, rec *domain.SearchRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	w.logger.Debug("search event written", "search_id", rec.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SearchRecord into a Kafka message.
func serializeToMessage(rec *domain.SearchRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize search record: %w", err)
	}
	key := rec.SessionID
	if key == "" {
		key = rec.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(rec.Category)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
