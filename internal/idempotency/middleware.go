package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/httputil"
	"festreg/pkg/requestcontext"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLength  = 255
	maxBodyBytes  = 1 << 20
	releaseBudget = 2 * time.Second
)

const (
	ReasonRequestInProgress dErrors.Reason = "request_in_progress"
	ReasonKeyReused         dErrors.Reason = "idempotency_key_reused"
)

// Middleware replays completed responses keyed by (participant, key). It
// must run after authentication.
type Middleware struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewMiddleware(store Store, ttl time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{store: store, ttl: ttl, logger: logger}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		pid := requestcontext.ParticipantID(r.Context())
		if key == "" || pid.IsNil() {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxKeyLength {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Idempotency-Key must be at most 255 characters"))
			return
		}

		ctx := r.Context()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "request body is too large"))
				return
			}
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		storeKey := pid.String() + ":" + key
		fp := fingerprint(r, body)

		stored, err := m.store.Reserve(ctx, storeKey, m.ttl)
		switch {
		case errors.Is(err, ErrInProgress):
			httputil.WriteError(w, dErrors.Wrap(ReasonRequestInProgress, dErrors.CodeConflict, "A request with this Idempotency-Key is still in progress"))
			return
		case err != nil:
			// Registration uniqueness still holds at the store, so serve
			// without replay rather than failing the request.
			m.logger.WarnContext(ctx, "idempotency store unavailable",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		case stored != nil:
			if stored.Fingerprint != fp {
				httputil.WriteError(w, dErrors.Wrap(ReasonKeyReused, dErrors.CodeConflict, "Idempotency-Key was already used for a different request"))
				return
			}
			replay(w, stored)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			if completed {
				return
			}
			releaseCtx, cancel := contextWithBudget(r)
			defer cancel()
			if err := m.store.Release(releaseCtx, storeKey); err != nil {
				m.logger.WarnContext(ctx, "failed to release idempotency key", "error", err)
			}
		}()

		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError {
			return
		}
		resp := Response{
			Fingerprint: fp,
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := m.store.Complete(ctx, storeKey, resp, m.ttl); err != nil {
			m.logger.WarnContext(ctx, "failed to store idempotent response", "error", err)
			return
		}
		completed = true
	})
}

func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// contextWithBudget detaches from the request so a timed-out request can
// still release its claim.
func contextWithBudget(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), releaseBudget)
}

func replay(w http.ResponseWriter, resp *Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
