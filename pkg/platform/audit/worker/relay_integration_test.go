//go:build integration

package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "festreg/pkg/domain"
	audit "festreg/pkg/platform/audit"
	auditkafka "festreg/pkg/platform/audit/kafka"
	auditpostgres "festreg/pkg/platform/audit/store/postgres"
	"festreg/pkg/platform/audit/worker"
	"festreg/pkg/testutil/containers"
)

const relayTopic = "festreg.audit.test"

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	producer *auditkafka.Producer
	store    *auditpostgres.Store
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())

	producer, err := auditkafka.NewProducer(s.redpanda.Brokers, relayTopic)
	s.Require().NoError(err)
	s.Require().NoError(producer.EnsureTopic(context.Background(), 1, 1))
	s.producer = producer
	s.store = auditpostgres.New(s.postgres.DB)
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func (s *RelaySuite) TestRelayPublishesAndMarksRows() {
	ctx := context.Background()
	participant := id.NewParticipantID()
	for _, action := range []audit.AuditEvent{audit.EventRegistrationCreated, audit.EventRegistrationCancelled} {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			ParticipantID: participant,
			Subject:       "registration",
			Action:        string(action),
			Timestamp:     time.Now().UTC(),
		}))
	}

	relay := worker.NewRelay(s.postgres.DB, s.producer, worker.WithBatchSize(10))
	n, err := relay.RelayBatch(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	var pending int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	s.Zero(pending)

	n, err = relay.RelayBatch(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published rows are not sent twice")

	records := s.consume(ctx, 2)
	s.Require().Len(records, 2)
	for _, rec := range records {
		s.Equal(participant.String(), string(rec.Key))
	}
	var first audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &first))
	s.Equal(string(audit.EventRegistrationCreated), first.Action)
}

func (s *RelaySuite) consume(ctx context.Context, want int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(relayTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	var out []*kgo.Record
	for len(out) < want && ctx.Err() == nil {
		fetches := client.PollFetches(ctx)
		fetches.EachRecord(func(r *kgo.Record) {
			out = append(out, r)
		})
	}
	return out
}
