package postgres

import (
	"context"
	"database/sql"

	eventModel "festreg/internal/event/models"
	pgplatform "festreg/internal/platform/postgres"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
	txcontext "festreg/pkg/platform/tx"
)

const eventColumns = `id, name, kind, capacity, registration_deadline, starts_at, team_min, team_max, deleted, created_at, updated_at`

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, e *eventModel.Event) error {
	teamMin, teamMax := boundsArgs(e.TeamBounds)
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.Name, string(e.Kind), e.Capacity, e.RegistrationDeadline, e.StartsAt, teamMin, teamMax, e.Deleted, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if _, ok := pgplatform.IsUniqueViolation(err); ok {
			return sentinel.ErrAlreadyUsed
		}
		return rowError(err, "insert event")
	}
	return nil
}

func (s *EventStore) FindByID(ctx context.Context, eventID id.EventID) (*eventModel.Event, error) {
	return s.findOne(ctx, ``, eventID)
}

// FindByIDForUpdate holds the row lock until the surrounding transaction ends.
func (s *EventStore) FindByIDForUpdate(ctx context.Context, eventID id.EventID) (*eventModel.Event, error) {
	return s.findOne(ctx, ` FOR UPDATE`, eventID)
}

func (s *EventStore) Update(ctx context.Context, e *eventModel.Event) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE events SET capacity = $2, deleted = $3, updated_at = $4 WHERE id = $1
	`, e.ID, e.Capacity, e.Deleted, e.UpdatedAt)
	if err != nil {
		return rowError(err, "update event")
	}
	return expectOneRow(res)
}

func (s *EventStore) findOne(ctx context.Context, suffix string, eventID id.EventID) (*eventModel.Event, error) {
	var (
		e       eventModel.Event
		kind    string
		teamMin sql.NullInt32
		teamMax sql.NullInt32
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`+suffix, eventID,
	).Scan(&e.ID, &e.Name, &kind, &e.Capacity, &e.RegistrationDeadline, &e.StartsAt, &teamMin, &teamMax, &e.Deleted, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, rowError(err, "select event")
	}
	e.Kind = eventModel.Kind(kind)
	if teamMin.Valid && teamMax.Valid {
		e.TeamBounds = &eventModel.TeamBounds{Min: int(teamMin.Int32), Max: int(teamMax.Int32)}
	}
	e.RegistrationDeadline = e.RegistrationDeadline.UTC()
	e.StartsAt = e.StartsAt.UTC()
	return &e, nil
}

func boundsArgs(b *eventModel.TeamBounds) (any, any) {
	if b == nil {
		return nil, nil
	}
	return b.Min, b.Max
}
