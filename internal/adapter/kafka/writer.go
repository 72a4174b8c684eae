package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-tracker-service/internal/config"
	"github.com/couchcryptid/covid-tracker-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces ranked country snapshots to a Kafka topic.
// It implements tracker.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// snapshot is the message value: one ranked country at fetch time.
type snapshot struct {
	Rank    int                   `json:"rank"`
	Country domain.CountrySummary `json:"country"`
}

// PublishRanking writes one message per ranked country in a single
// WriteMessages call. Messages are keyed by ISO code.
func (w *Writer) PublishRanking(ctx context.Context, ranking []domain.CountrySummary, fetchedAt time.Time) error {
	if len(ranking) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ranking))
	for i := range ranking {
		msg, err := serializeToMessage(i+1, ranking[i], fetchedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	w.logger.Debug("snapshots published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ranked country into a Kafka message.
func serializeToMessage(rank int, country domain.CountrySummary, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(snapshot{Rank: rank, Country: country})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize country snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(country.ISOCode),
		Value: data,
		Time:  fetchedAt,
		Headers: []kafkago.Header{
			{Key: "rank", Value: []byte(strconv.Itoa(rank))},
			{Key: "fetched_at", Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
