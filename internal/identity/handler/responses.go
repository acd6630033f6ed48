package handler

import (
	"time"

	identityModel "festreg/internal/identity/models"
	id "festreg/pkg/domain"
)

type ParticipantResponse struct {
	ID        id.ParticipantID `json:"id"`
	PublicID  string           `json:"public_id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Blocked   bool             `json:"blocked"`
	Deleted   bool             `json:"deleted"`
	CreatedAt time.Time        `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresAt   time.Time           `json:"expires_at"`
	Participant ParticipantResponse `json:"participant"`
}

func toParticipantResponse(p *identityModel.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:        p.ID,
		PublicID:  p.PublicID,
		Email:     p.Email,
		Name:      p.Name,
		Blocked:   p.Blocked,
		Deleted:   p.Deleted,
		CreatedAt: p.CreatedAt,
	}
}
