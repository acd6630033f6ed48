package memory

import (
	"context"
	"fmt"
	"sync"

	identityModel "festreg/internal/identity/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
)

type ParticipantStore struct {
	mu         sync.RWMutex
	byID       map[id.ParticipantID]*identityModel.Participant
	byEmail    map[string]id.ParticipantID
	byPublicID map[string]id.ParticipantID
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{
		byID:       make(map[id.ParticipantID]*identityModel.Participant),
		byEmail:    make(map[string]id.ParticipantID),
		byPublicID: make(map[string]id.ParticipantID),
	}
}

// Create fails with sentinel.ErrAlreadyUsed when the email or public ID is taken.
func (s *ParticipantStore) Create(_ context.Context, p *identityModel.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[p.Email]; ok {
		return fmt.Errorf("email %s: %w", p.Email, sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.byPublicID[p.PublicID]; ok {
		return fmt.Errorf("public id %s: %w", p.PublicID, sentinel.ErrAlreadyUsed)
	}
	cp := *p
	s.byID[p.ID] = &cp
	s.byEmail[p.Email] = p.ID
	s.byPublicID[p.PublicID] = p.ID
	return nil
}

func (s *ParticipantStore) FindByID(_ context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(participantID)
}

func (s *ParticipantStore) FindByEmail(_ context.Context, email string) (*identityModel.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.lookup(pid)
}

func (s *ParticipantStore) FindByPublicID(_ context.Context, publicID string) (*identityModel.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.byPublicID[publicID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.lookup(pid)
}

// Update persists mutable fields. Email and public ID never change.
func (s *ParticipantStore) Update(_ context.Context, p *identityModel.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Name = p.Name
	existing.PasswordHash = p.PasswordHash
	existing.Blocked = p.Blocked
	existing.Deleted = p.Deleted
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

func (s *ParticipantStore) lookup(participantID id.ParticipantID) (*identityModel.Participant, error) {
	p, ok := s.byID[participantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
