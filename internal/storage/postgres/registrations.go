package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	pgplatform "festreg/internal/platform/postgres"
	registrationModel "festreg/internal/registration/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
	txcontext "festreg/pkg/platform/tx"
)

const registrationColumns = `id, event_id, participant_id, team_id, status, registered_by, created_at,
	checked_in_at, cancelled_by, cancelled_at, restored_by, restored_at, restore_count`

// RegistrationStore depends on the partial unique indexes over confirmed
// rows; a violation on either surfaces as sentinel.ErrAlreadyUsed.
type RegistrationStore struct {
	db *sql.DB
}

func NewRegistrationStore(db *sql.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// registrationRow is the flat column form of a registration.
type registrationRow struct {
	participantID any
	teamID        any
	status        string
	cancelledBy   any
	cancelledAt   any
	restoredBy    any
	restoredAt    any
	restoreCount  int
}

func toRow(r *registrationModel.Registration) registrationRow {
	row := registrationRow{status: string(r.Status())}
	if pid, ok := r.Registrant.ParticipantID(); ok {
		row.participantID = pid
	}
	if tid, ok := r.Registrant.TeamID(); ok {
		row.teamID = tid
	}
	if c, ok := r.Cancelled(); ok {
		row.cancelledBy = c.By
		row.cancelledAt = c.At
	}
	if r.Restoration != nil {
		row.restoredBy = r.Restoration.By
		row.restoredAt = r.Restoration.At
		row.restoreCount = r.Restoration.Count
	}
	return row
}

func (s *RegistrationStore) Create(ctx context.Context, r *registrationModel.Registration) error {
	row := toRow(r)
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.ID, r.EventID, row.participantID, row.teamID, row.status, r.RegisteredBy, r.CreatedAt,
		r.CheckedInAt, row.cancelledBy, row.cancelledAt, row.restoredBy, row.restoredAt, row.restoreCount)
	return writeError(err, "insert registration")
}

func (s *RegistrationStore) Update(ctx context.Context, r *registrationModel.Registration) error {
	row := toRow(r)
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE registrations
		SET participant_id = $2, team_id = $3, status = $4, checked_in_at = $5,
			cancelled_by = $6, cancelled_at = $7, restored_by = $8, restored_at = $9, restore_count = $10
		WHERE id = $1
	`, r.ID, row.participantID, row.teamID, row.status, r.CheckedInAt,
		row.cancelledBy, row.cancelledAt, row.restoredBy, row.restoredAt, row.restoreCount)
	if err := writeError(err, "update registration"); err != nil {
		return err
	}
	return expectOneRow(res)
}

func writeError(err error, op string) error {
	if err == nil {
		return nil
	}
	if constraint, ok := pgplatform.IsUniqueViolation(err); ok {
		return fmt.Errorf("%s: %w", constraint, sentinel.ErrAlreadyUsed)
	}
	if pgplatform.IsForeignKeyViolation(err) {
		return fmt.Errorf("%s: dangling reference: %w", op, sentinel.ErrNotFound)
	}
	return rowError(err, op)
}

func (s *RegistrationStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error) {
	return s.findOne(ctx, `WHERE id = $1`, registrationID)
}

func (s *RegistrationStore) FindByIDForUpdate(ctx context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error) {
	return s.findOne(ctx, `WHERE id = $1 FOR UPDATE`, registrationID)
}

func (s *RegistrationStore) CountActive(ctx context.Context, eventID id.EventID) (int, error) {
	var n int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM registrations WHERE event_id = $1 AND status = 'confirmed'`, eventID,
	).Scan(&n)
	if err != nil {
		return 0, rowError(err, "count active registrations")
	}
	return n, nil
}

func (s *RegistrationStore) FindActiveByParticipant(ctx context.Context, eventID id.EventID, participantID id.ParticipantID) (*registrationModel.Registration, error) {
	return s.findOne(ctx, `WHERE event_id = $1 AND participant_id = $2 AND status = 'confirmed'`, eventID, participantID)
}

func (s *RegistrationStore) FindActiveByTeam(ctx context.Context, eventID id.EventID, teamID id.TeamID) (*registrationModel.Registration, error) {
	return s.findOne(ctx, `WHERE event_id = $1 AND team_id = $2 AND status = 'confirmed'`, eventID, teamID)
}

func (s *RegistrationStore) ListByEvent(ctx context.Context, eventID id.EventID) ([]*registrationModel.Registration, error) {
	return s.list(ctx, `WHERE event_id = $1 ORDER BY created_at, id`, eventID)
}

func (s *RegistrationStore) ListForParticipant(ctx context.Context, participantID id.ParticipantID) ([]*registrationModel.Registration, error) {
	return s.list(ctx, `
		WHERE participant_id = $1
		   OR team_id IN (
				SELECT t.id FROM teams t
				WHERE NOT t.deleted AND (t.leader_id = $1 OR $1 = ANY (t.member_ids))
		   )
		ORDER BY created_at, id`, participantID)
}

func (s *RegistrationStore) findOne(ctx context.Context, where string, args ...any) (*registrationModel.Registration, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations `+where, args...)
	r, err := scanRegistration(row)
	if err != nil {
		return nil, rowError(err, "select registration")
	}
	return r, nil
}

func (s *RegistrationStore) list(ctx context.Context, where string, args ...any) ([]*registrationModel.Registration, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `SELECT `+registrationColumns+` FROM registrations `+where, args...)
	if err != nil {
		return nil, rowError(err, "list registrations")
	}
	defer rows.Close()

	out := make([]*registrationModel.Registration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, rowError(err, "iterate registrations")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(sc scanner) (*registrationModel.Registration, error) {
	var (
		r             registrationModel.Registration
		participantID sql.NullString
		teamID        sql.NullString
		status        string
		checkedInAt   sql.NullTime
		cancelledBy   sql.NullString
		cancelledAt   sql.NullTime
		restoredBy    sql.NullString
		restoredAt    sql.NullTime
		restoreCount  int
	)
	if err := sc.Scan(&r.ID, &r.EventID, &participantID, &teamID, &status, &r.RegisteredBy, &r.CreatedAt,
		&checkedInAt, &cancelledBy, &cancelledAt, &restoredBy, &restoredAt, &restoreCount); err != nil {
		return nil, err
	}

	switch {
	case participantID.Valid:
		pid, err := id.ParseParticipantID(participantID.String)
		if err != nil {
			return nil, err
		}
		r.Registrant = registrationModel.ParticipantRegistrant(pid)
	case teamID.Valid:
		tid, err := id.ParseTeamID(teamID.String)
		if err != nil {
			return nil, err
		}
		r.Registrant = registrationModel.TeamRegistrant(tid)
	default:
		return nil, fmt.Errorf("registration %s has no registrant", r.ID)
	}

	r.State = registrationModel.Active{}
	if registrationModel.Status(status) == registrationModel.StatusCancelled {
		by, err := parseOptionalParticipant(cancelledBy)
		if err != nil {
			return nil, err
		}
		at := time.Time{}
		if cancelledAt.Valid {
			at = cancelledAt.Time.UTC()
		}
		r.State = registrationModel.Cancelled{By: by, At: at}
	}
	if restoredAt.Valid {
		by, err := parseOptionalParticipant(restoredBy)
		if err != nil {
			return nil, err
		}
		r.Restoration = &registrationModel.Restoration{By: by, At: restoredAt.Time.UTC(), Count: restoreCount}
	}
	r.CheckedInAt = nullTime(checkedInAt)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func parseOptionalParticipant(v sql.NullString) (id.ParticipantID, error) {
	if !v.Valid {
		return id.ParticipantID{}, nil
	}
	return id.ParseParticipantID(v.String)
}
