// Package kafka implements the outbox worker's downstream Sink
// (spec.md §1, §4.3) on top of Kafka/Redpanda, adapted from the teacher's
// internal/adapter/queue/redpanda producer/consumer.
package kafka

import (
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/stateset/commerce-core/internal/domain"
)

// Producer publishes delivered outbox events to one Kafka/Redpanda topic per
// aggregate type, implementing domain.Sink.
type Producer struct {
	client      *kgo.Client
	topicPrefix string
}

// NewProducer constructs a Producer over the given seed brokers. topicPrefix
// is prepended to the aggregate type to form the topic name, e.g.
// "commerce.order", "commerce.inventory" (spec.md §6 External Interfaces).
func NewProducer(brokers []string, topicPrefix string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=sink.kafka.new: no seed brokers provided")
	}

	kotelTracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(kotelTracer))

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.WithHooks(kotelService.Hooks()...),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("op=sink.kafka.new: %w", err)
	}
	return &Producer{client: client, topicPrefix: topicPrefix}, nil
}

// Publish implements domain.Sink. The record key is aggregateID (best-effort
// per-aggregate partition affinity, spec.md §5), the value is the outbox
// row's JSON payload verbatim, and a single header carries event_type
// (SPEC_FULL.md §7 External Interfaces).
func (p *Producer) Publish(ctx domain.Context, aggregateType, aggregateID, eventType string, payload []byte) error {
	record := &kgo.Record{
		Topic: p.topic(aggregateType),
		Key:   []byte(aggregateID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	res := p.client.ProduceSync(ctx, record)
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("op=sink.kafka.publish: %w", err)
	}
	return nil
}

func (p *Producer) topic(aggregateType string) string {
	if p.topicPrefix == "" {
		return aggregateType
	}
	return p.topicPrefix + "." + aggregateType
}

// Close releases the underlying Kafka client.
func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

var _ domain.Sink = (*Producer)(nil)
