// Package idempotency replays the first completed response for a
// participant's Idempotency-Key so retried registrations never reserve a
// second slot.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrInProgress means another request holding the same key has not finished.
var ErrInProgress = errors.New("idempotency: request in progress")

// Response is the captured outcome of a completed request.
type Response struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// Store claims keys and keeps completed responses until their TTL lapses.
type Store interface {
	// Reserve claims key for ttl. A nil response with nil error means the
	// caller now owns the key; a stored response means it already completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (*Response, error)
	Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}
