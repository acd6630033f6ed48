package memory

import (
	"context"
	"sync"

	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
)

// TeamStore hides soft-deleted teams from lookups.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[id.TeamID]*teamModel.Team
}

func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[id.TeamID]*teamModel.Team)}
}

func (s *TeamStore) Create(_ context.Context, t *teamModel.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.teams[t.ID] = t.Clone()
	return nil
}

func (s *TeamStore) FindByID(_ context.Context, teamID id.TeamID) (*teamModel.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[teamID]
	if !ok || t.Deleted {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *TeamStore) FindByIDForUpdate(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error) {
	return s.FindByID(ctx, teamID)
}

func (s *TeamStore) Update(_ context.Context, t *teamModel.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.teams[t.ID] = t.Clone()
	return nil
}

// teamsOf returns the IDs of live teams pid leads or belongs to.
func (s *TeamStore) teamsOf(pid id.ParticipantID) map[id.TeamID]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.TeamID]struct{})
	for tid, t := range s.teams {
		if !t.Deleted && t.Includes(pid) {
			out[tid] = struct{}{}
		}
	}
	return out
}
