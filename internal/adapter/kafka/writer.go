package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/i474232898/weather-warnings/internal/warnings"
)

// Writer publishes region states to a Kafka topic.
// It implements warnings.Reporter.
type Writer struct {
	writer *kafkago.Writer
	logger zerolog.Logger
}

// NewWriter creates an asynchronous producer so Report never blocks a refresh.
// Messages are keyed by region id, which keeps each region on one partition.
func NewWriter(brokers []string, topic string, logger zerolog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Error().Err(err).Int("messages", len(messages)).Msg("kafka delivery failed")
			}
		},
	}
	return &Writer{writer: w, logger: logger}
}

// Report enqueues the state for delivery.
func (w *Writer) Report(state warnings.RegionState) {
	msg, err := serializeToMessage(state)
	if err != nil {
		w.logger.Error().Err(err).Str("region", state.RegionID.String()).Msg("serialize region state")
		return
	}
	if err := w.writer.WriteMessages(context.Background(), msg); err != nil {
		w.logger.Error().Err(err).Str("region", state.RegionID.String()).Msg("enqueue region state")
	}
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RegionState into a Kafka message.
func serializeToMessage(state warnings.RegionState) (kafkago.Message, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region state: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(state.RegionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region_id", Value: []byte(state.RegionID)},
			{Key: "count", Value: []byte(strconv.Itoa(state.State))},
			{Key: "fetched_at", Value: []byte(state.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
