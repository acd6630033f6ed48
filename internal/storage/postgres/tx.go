package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"festreg/internal/platform/metrics"
	"festreg/internal/storage"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	txcontext "festreg/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

var tracer = otel.Tracer("festreg/internal/storage/postgres")

// UnitOfWork runs fn in a read-committed transaction that first takes the
// event row lock, so every capacity check and the write it gates are
// serialised per event across processes.
type UnitOfWork struct {
	db      *sql.DB
	stores  storage.Stores
	timeout time.Duration
	metrics *metrics.Metrics
}

type TxOption func(*UnitOfWork)

func WithTxTimeout(d time.Duration) TxOption {
	return func(u *UnitOfWork) {
		u.timeout = d
	}
}

func WithMetrics(m *metrics.Metrics) TxOption {
	return func(u *UnitOfWork) {
		u.metrics = m
	}
}

func NewUnitOfWork(db *sql.DB, stores storage.Stores, opts ...TxOption) *UnitOfWork {
	u := &UnitOfWork{db: db, stores: stores, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UnitOfWork) RunInTx(ctx context.Context, eventID id.EventID, fn func(ctx context.Context, stores storage.Stores) error) (err error) {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "storage.RunInTx")
	span.SetAttributes(attribute.String("event.id", eventID.String()))
	start := time.Now()
	defer func() {
		outcome := "commit"
		if err != nil {
			outcome = "rollback"
			span.RecordError(err)
			span.SetStatus(codes.Error, "rolled back")
		}
		u.metrics.ObserveTx(outcome, time.Since(start))
		span.End()
	}()

	sqlTx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return txError(err, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	// A missing event takes no lock; fn reports it when it loads the event.
	if _, err := sqlTx.ExecContext(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, eventID); err != nil {
		return txError(err, "lock event")
	}

	if err := fn(txcontext.WithTx(ctx, sqlTx), u.stores); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return txError(err, "commit transaction")
	}
	return nil
}

func txError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return dErrors.Wrap(fmt.Errorf("%s: %w", op, err), dErrors.CodeDependency, "storage unavailable")
}
