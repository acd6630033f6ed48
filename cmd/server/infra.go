package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"festreg/internal/idempotency"
	"festreg/internal/platform/config"
	"festreg/internal/platform/metrics"
	pgplatform "festreg/internal/platform/postgres"
	redisplatform "festreg/internal/platform/redis"
	"festreg/internal/storage"
	"festreg/internal/storage/memory"
	pgstorage "festreg/internal/storage/postgres"
	httptransport "festreg/internal/transport/http"
	audit "festreg/pkg/platform/audit"
	auditkafka "festreg/pkg/platform/audit/kafka"
	"festreg/pkg/platform/audit/publisher"
	auditmemory "festreg/pkg/platform/audit/store/memory"
	auditpostgres "festreg/pkg/platform/audit/store/postgres"
	"festreg/pkg/platform/audit/worker"
	"festreg/pkg/platform/circuit"
)

const idempotencySweepInterval = time.Minute

// infra holds the process-wide backends chosen by configuration.
type infra struct {
	backend     *storage.Backend
	idempotency idempotency.Store
	audit       *publisher.Publisher

	checks  map[string]httptransport.HealthCheck
	workers []func(ctx context.Context) error
	closers []func()

	storageKind     string
	idempotencyKind string
	auditKind       string
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics, reg prometheus.Registerer) (*infra, error) {
	inf := &infra{checks: map[string]httptransport.HealthCheck{}}

	var db *sql.DB
	if cfg.UsesPostgres() {
		var err error
		db, err = pgplatform.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		inf.closers = append(inf.closers, func() { _ = db.Close() })
		if err := pgplatform.Migrate(ctx, db); err != nil {
			inf.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		inf.backend = pgstorage.New(db, pgstorage.WithTxTimeout(cfg.TxTimeout), pgstorage.WithMetrics(m))
		inf.checks["postgres"] = db.PingContext
		inf.storageKind = "postgres"
	} else {
		inf.backend = memory.New(memory.WithTxTimeout(cfg.TxTimeout))
		inf.storageKind = "memory"
	}

	if err := inf.openIdempotency(ctx, cfg, log); err != nil {
		inf.Close()
		return nil, err
	}
	if err := inf.openAudit(ctx, cfg, log, db, reg); err != nil {
		inf.Close()
		return nil, err
	}
	return inf, nil
}

func (inf *infra) openIdempotency(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	client, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		inf.closers = append(inf.closers, func() { _ = client.Close() })
		inf.idempotency = idempotency.NewRedisStore(client.Client)
		inf.checks["redis"] = client.Health
		inf.idempotencyKind = "redis"
		return nil
	}

	store := idempotency.NewMemoryStore()
	inf.idempotency = store
	inf.idempotencyKind = "memory"
	inf.workers = append(inf.workers, func(ctx context.Context) error {
		ticker := time.NewTicker(idempotencySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := store.Sweep(); n > 0 {
					log.DebugContext(ctx, "swept idempotency keys", "count", n)
				}
			}
		}
	})
	return nil
}

// openAudit picks the audit sink: the postgres outbox (relayed to Kafka when
// brokers are set), a direct Kafka sink, or the in-memory store.
func (inf *infra) openAudit(ctx context.Context, cfg config.Server, log *slog.Logger, db *sql.DB, reg prometheus.Registerer) error {
	var producer *auditkafka.Producer
	if len(cfg.Audit.KafkaBrokers) > 0 {
		var err error
		producer, err = auditkafka.NewProducer(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return err
		}
		inf.closers = append(inf.closers, producer.Close)
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			log.WarnContext(ctx, "audit topic bootstrap failed", "topic", cfg.Audit.Topic, "error", err)
		}
		inf.checks["kafka"] = producer.Ping
	}

	var store audit.Store
	switch {
	case db != nil:
		store = auditpostgres.New(db)
		inf.auditKind = "outbox"
		if producer != nil {
			relay := worker.NewRelay(db, producer,
				worker.WithInterval(cfg.Audit.RelayInterval),
				worker.WithLogger(log),
			)
			inf.workers = append(inf.workers, relay.Run)
			inf.auditKind = "outbox+kafka"
		}
	case producer != nil:
		store = auditkafka.NewSink(producer, auditmemory.NewInMemoryStore())
		inf.auditKind = "kafka"
	default:
		store = auditmemory.NewInMemoryStore()
		inf.auditKind = "memory"
	}

	sampler := publisher.NewSampler(cfg.Audit.OpsSampleRate)
	for action, rate := range cfg.Audit.OpsSampleRates {
		sampler.SetRate(audit.AuditEvent(action), rate)
	}
	inf.audit = publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
		publisher.WithBreaker(circuit.New("audit_store")),
		publisher.WithSampler(sampler),
	)
	return nil
}

// Close drains the audit buffer first so queued events reach their store
// before connections go away.
func (inf *infra) Close() {
	if inf.audit != nil {
		inf.audit.Close()
	}
	for i := len(inf.closers) - 1; i >= 0; i-- {
		inf.closers[i]()
	}
}
