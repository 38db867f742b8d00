package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is a thin wrapper over a franz-go client scoped to one topic.
// Returns from Produce are asynchronous; delivery failures are logged, never
// surfaced, because audit mirroring is best-effort by design.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewProducer connects to the brokers and makes sure the topic exists.
// Returns nil if brokers is empty (Kafka not configured).
func NewProducer(ctx context.Context, brokers, topic string, logger *slog.Logger) (*Producer, error) {
	if brokers == "" {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopics(ctx, 3, 1, nil, topic); err != nil {
		// Topic may already exist; anything else still lets the producer
		// start, the first Produce will surface broker trouble in logs.
		logger.Warn("create kafka topic", "topic", topic, "error", err)
	}

	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Produce sends one record keyed by key. It never blocks on delivery.
func (p *Producer) Produce(ctx context.Context, key string, value []byte) {
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: value}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka produce failed",
				"topic", r.Topic,
				"key", string(r.Key),
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
