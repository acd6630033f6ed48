package testutil

import (
	"context"
	"net/http"
	"time"

	id "festreg/pkg/domain"
	"festreg/pkg/requestcontext"
)

// WithParticipant marks the request as authenticated, as RequireAuth would.
func WithParticipant(req *http.Request, participantID id.ParticipantID) *http.Request {
	return req.WithContext(requestcontext.WithParticipantID(req.Context(), participantID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// ParticipantContext builds a service-level context for an acting participant
// at a fixed time.
func ParticipantContext(participantID id.ParticipantID, now time.Time) context.Context {
	ctx := requestcontext.WithParticipantID(context.Background(), participantID)
	return requestcontext.WithTime(ctx, now)
}
