package postgres

import (
	"context"
	"database/sql"

	txcontext "festreg/pkg/platform/tx"
)

type CounterStore struct {
	db *sql.DB
}

func NewCounterStore(db *sql.DB) *CounterStore {
	return &CounterStore{db: db}
}

// Increment is a single upsert statement, so concurrent callers never see
// the same value.
func (s *CounterStore) Increment(ctx context.Context, namespace string) (int64, error) {
	var value int64
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO counters (namespace, value)
		VALUES ($1, 1)
		ON CONFLICT (namespace) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`, namespace).Scan(&value)
	if err != nil {
		return 0, rowError(err, "increment counter")
	}
	return value, nil
}
