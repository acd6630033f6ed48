// Package worker relays audit outbox rows to the message broker.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Publisher ships one keyed payload. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Relay polls the outbox and publishes unpublished rows in creation order.
// Several relays may run against the same database: rows are claimed with
// FOR UPDATE SKIP LOCKED so each row is shipped by one relay at a time.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRelay(db *sql.DB, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		db:        db,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Batch failures are logged and retried on
// the next tick, so delivery is at-least-once.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RelayBatch(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "outbox relay published", "count", n)
			}
		}
	}
}

type outboxRow struct {
	id          string
	aggregateID string
	payload     []byte
}

// RelayBatch publishes up to one batch and returns how many rows it marked.
// A publish failure stops the batch; rows published before it are still
// marked so they are not resent.
func (r *Relay) RelayBatch(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}
	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.aggregateID, &row.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}

	published := make([]string, 0, len(batch))
	var publishErr error
	for _, row := range batch {
		if publishErr = r.publisher.Publish(ctx, row.aggregateID, row.payload); publishErr != nil {
			break
		}
		published = append(published, row.id)
	}

	if len(published) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = now() WHERE id = ANY($1)`,
			pq.Array(published),
		); err != nil {
			return 0, fmt.Errorf("mark outbox rows: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	if publishErr != nil {
		return len(published), fmt.Errorf("publish outbox row: %w", publishErr)
	}
	return len(published), nil
}
