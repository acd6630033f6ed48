// Package postgres is the durable storage backend. Every store resolves its
// executor through pkg/platform/tx, so calls made inside RunInTx share the
// transaction opened there.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"festreg/internal/storage"
	"festreg/pkg/platform/sentinel"
)

// New builds the PostgreSQL backend on db. Migrations must already be applied.
func New(db *sql.DB, opts ...TxOption) *storage.Backend {
	stores := storage.Stores{
		Events:        NewEventStore(db),
		Teams:         NewTeamStore(db),
		Registrations: NewRegistrationStore(db),
		Participants:  NewParticipantStore(db),
	}
	return &storage.Backend{
		Stores:   stores,
		Counters: NewCounterStore(db),
		UoW:      NewUnitOfWork(db, stores, opts...),
	}
}

// rowError maps driver errors that are not constraint violations.
func rowError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
