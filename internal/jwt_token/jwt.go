package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

// SessionClaims are the claims of a participant session token.
type SessionClaims struct {
	ParticipantID string `json:"participant_id"`
	PublicID      string `json:"public_id"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 session tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// IssueSession signs a session for the participant valid for ttl.
func (s *JWTService) IssueSession(participantID id.ParticipantID, publicID string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		ParticipantID: participantID.String(),
		PublicID:      publicID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session")
	}
	return signed, expiresAt, nil
}

// ParseSession validates signature, expiry, issuer and audience.
func (s *JWTService) ParseSession(tokenString string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateToken satisfies middleware.TokenValidator.
func (s *JWTService) ValidateToken(tokenString string) (id.ParticipantID, error) {
	claims, err := s.ParseSession(tokenString)
	if err != nil {
		return id.ParticipantID{}, err
	}
	participantID, err := id.ParseParticipantID(claims.ParticipantID)
	if err != nil {
		return id.ParticipantID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return participantID, nil
}
