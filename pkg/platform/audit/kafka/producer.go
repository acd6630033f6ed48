// Package kafka ships audit events to a Kafka (or Redpanda) topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	id "festreg/pkg/domain"
	audit "festreg/pkg/platform/audit"
)

// Producer publishes keyed records to a single topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the seed brokers. The connection is lazy; the
// first produce or admin call surfaces broker errors.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Producer{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	return nil
}

// Publish produces one record and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

// Ping checks broker reachability.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}

// Sink is an audit.Store that produces every event directly to Kafka. It is
// used when there is no database to host the outbox. Reads are served by the
// local store, which also receives every event.
type Sink struct {
	producer *Producer
	local    audit.Store
}

func NewSink(producer *Producer, local audit.Store) *Sink {
	return &Sink{producer: producer, local: local}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := s.producer.Publish(ctx, recordKey(event), payload); err != nil {
		return err
	}
	return s.local.Append(ctx, event)
}

func (s *Sink) ListByParticipant(ctx context.Context, participantID id.ParticipantID) ([]audit.Event, error) {
	return s.local.ListByParticipant(ctx, participantID)
}

// recordKey partitions by participant so a participant's trail stays ordered.
func recordKey(event audit.Event) string {
	if !event.ParticipantID.IsNil() {
		return event.ParticipantID.String()
	}
	return event.ID
}
