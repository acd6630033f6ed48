package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	pgplatform "festreg/internal/platform/postgres"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
	txcontext "festreg/pkg/platform/tx"
)

const teamColumns = `id, event_id, name, leader_id, member_ids, deleted, created_at, updated_at`

type TeamStore struct {
	db *sql.DB
}

func NewTeamStore(db *sql.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) Create(ctx context.Context, t *teamModel.Team) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.EventID, t.Name, t.LeaderID, memberArray(t.MemberIDs), t.Deleted, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if _, ok := pgplatform.IsUniqueViolation(err); ok {
			return sentinel.ErrAlreadyUsed
		}
		if pgplatform.IsForeignKeyViolation(err) {
			return fmt.Errorf("team references unknown event or leader: %w", sentinel.ErrNotFound)
		}
		return rowError(err, "insert team")
	}
	return nil
}

func (s *TeamStore) FindByID(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error) {
	return s.findOne(ctx, ``, teamID)
}

func (s *TeamStore) FindByIDForUpdate(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error) {
	return s.findOne(ctx, ` FOR UPDATE`, teamID)
}

func (s *TeamStore) Update(ctx context.Context, t *teamModel.Team) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE teams SET name = $2, member_ids = $3, deleted = $4, updated_at = $5 WHERE id = $1
	`, t.ID, t.Name, memberArray(t.MemberIDs), t.Deleted, t.UpdatedAt)
	if err != nil {
		return rowError(err, "update team")
	}
	return expectOneRow(res)
}

func (s *TeamStore) findOne(ctx context.Context, suffix string, teamID id.TeamID) (*teamModel.Team, error) {
	var (
		t       teamModel.Team
		members pq.StringArray
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1 AND NOT deleted`+suffix, teamID,
	).Scan(&t.ID, &t.EventID, &t.Name, &t.LeaderID, &members, &t.Deleted, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, rowError(err, "select team")
	}
	t.MemberIDs = make([]id.ParticipantID, 0, len(members))
	for _, raw := range members {
		pid, err := id.ParseParticipantID(raw)
		if err != nil {
			return nil, fmt.Errorf("team %s has malformed member id: %w", t.ID, err)
		}
		t.MemberIDs = append(t.MemberIDs, pid)
	}
	return &t, nil
}

func memberArray(ids []id.ParticipantID) any {
	out := make([]string, len(ids))
	for i, pid := range ids {
		out[i] = pid.String()
	}
	return pq.Array(out)
}
