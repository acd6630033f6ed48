package memory

import (
	"context"
	"sort"
	"sync"

	registrationModel "festreg/internal/registration/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
)

type activeKey struct {
	eventID    id.EventID
	registrant string
}

func keyOf(r *registrationModel.Registration) activeKey {
	return activeKey{eventID: r.EventID, registrant: r.Registrant.String()}
}

// RegistrationStore indexes active registrations per (event, registrant) so
// the one-active-registration rule holds regardless of caller checks.
type RegistrationStore struct {
	mu     sync.RWMutex
	byID   map[id.RegistrationID]*registrationModel.Registration
	active map[activeKey]id.RegistrationID
	teams  *TeamStore
}

func NewRegistrationStore(teams *TeamStore) *RegistrationStore {
	return &RegistrationStore{
		byID:   make(map[id.RegistrationID]*registrationModel.Registration),
		active: make(map[activeKey]id.RegistrationID),
		teams:  teams,
	}
}

func (s *RegistrationStore) Create(_ context.Context, r *registrationModel.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; ok {
		return sentinel.ErrConflict
	}
	if r.IsActive() {
		if _, taken := s.active[keyOf(r)]; taken {
			return sentinel.ErrAlreadyUsed
		}
		s.active[keyOf(r)] = r.ID
	}
	s.byID[r.ID] = r.Clone()
	return nil
}

func (s *RegistrationStore) Update(_ context.Context, r *registrationModel.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if r.IsActive() {
		if holder, taken := s.active[keyOf(r)]; taken && holder != r.ID {
			return sentinel.ErrAlreadyUsed
		}
	}
	if prev.IsActive() {
		delete(s.active, keyOf(prev))
	}
	if r.IsActive() {
		s.active[keyOf(r)] = r.ID
	}
	s.byID[r.ID] = r.Clone()
	return nil
}

func (s *RegistrationStore) FindByID(_ context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *RegistrationStore) FindByIDForUpdate(ctx context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error) {
	return s.FindByID(ctx, registrationID)
}

func (s *RegistrationStore) CountActive(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.active {
		if key.eventID == eventID {
			n++
		}
	}
	return n, nil
}

func (s *RegistrationStore) FindActiveByParticipant(_ context.Context, eventID id.EventID, participantID id.ParticipantID) (*registrationModel.Registration, error) {
	return s.findActive(activeKey{eventID: eventID, registrant: registrationModel.ParticipantRegistrant(participantID).String()})
}

func (s *RegistrationStore) FindActiveByTeam(_ context.Context, eventID id.EventID, teamID id.TeamID) (*registrationModel.Registration, error) {
	return s.findActive(activeKey{eventID: eventID, registrant: registrationModel.TeamRegistrant(teamID).String()})
}

func (s *RegistrationStore) findActive(key activeKey) (*registrationModel.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rid, ok := s.active[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[rid].Clone(), nil
}

func (s *RegistrationStore) ListByEvent(_ context.Context, eventID id.EventID) ([]*registrationModel.Registration, error) {
	return s.list(func(r *registrationModel.Registration) bool {
		return r.EventID == eventID
	}), nil
}

func (s *RegistrationStore) ListForParticipant(_ context.Context, participantID id.ParticipantID) ([]*registrationModel.Registration, error) {
	teams := s.teams.teamsOf(participantID)
	return s.list(func(r *registrationModel.Registration) bool {
		if pid, ok := r.Registrant.ParticipantID(); ok {
			return pid == participantID
		}
		tid, _ := r.Registrant.TeamID()
		_, member := teams[tid]
		return member
	}), nil
}

// list returns matches oldest first.
func (s *RegistrationStore) list(match func(*registrationModel.Registration) bool) []*registrationModel.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*registrationModel.Registration, 0)
	for _, r := range s.byID {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
