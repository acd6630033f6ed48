package postgres

import (
	"context"
	"database/sql"
	"fmt"

	identityModel "festreg/internal/identity/models"
	pgplatform "festreg/internal/platform/postgres"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
	txcontext "festreg/pkg/platform/tx"
)

const participantColumns = `id, public_id, sequence, email, name, password_hash, blocked, deleted, created_at, updated_at`

type ParticipantStore struct {
	db *sql.DB
}

func NewParticipantStore(db *sql.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

// Create relies on the email and public_id unique constraints.
func (s *ParticipantStore) Create(ctx context.Context, p *identityModel.Participant) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.PublicID, p.Sequence, p.Email, p.Name, p.PasswordHash, p.Blocked, p.Deleted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if constraint, ok := pgplatform.IsUniqueViolation(err); ok {
			return fmt.Errorf("%s: %w", constraint, sentinel.ErrAlreadyUsed)
		}
		return rowError(err, "insert participant")
	}
	return nil
}

func (s *ParticipantStore) FindByID(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	return s.findOne(ctx, `WHERE id = $1`, participantID)
}

func (s *ParticipantStore) FindByEmail(ctx context.Context, email string) (*identityModel.Participant, error) {
	return s.findOne(ctx, `WHERE email = $1`, email)
}

func (s *ParticipantStore) FindByPublicID(ctx context.Context, publicID string) (*identityModel.Participant, error) {
	return s.findOne(ctx, `WHERE public_id = $1`, publicID)
}

func (s *ParticipantStore) Update(ctx context.Context, p *identityModel.Participant) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE participants
		SET name = $2, password_hash = $3, blocked = $4, deleted = $5, updated_at = $6
		WHERE id = $1
	`, p.ID, p.Name, p.PasswordHash, p.Blocked, p.Deleted, p.UpdatedAt)
	if err != nil {
		return rowError(err, "update participant")
	}
	return expectOneRow(res)
}

func (s *ParticipantStore) findOne(ctx context.Context, where string, arg any) (*identityModel.Participant, error) {
	var p identityModel.Participant
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants `+where, arg,
	).Scan(&p.ID, &p.PublicID, &p.Sequence, &p.Email, &p.Name, &p.PasswordHash, &p.Blocked, &p.Deleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, rowError(err, "select participant")
	}
	return &p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
