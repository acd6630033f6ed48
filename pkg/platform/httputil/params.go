package httputil

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/requestcontext"
)

// RequireParticipant returns the authenticated participant or writes 401.
func RequireParticipant(w http.ResponseWriter, r *http.Request) (id.ParticipantID, bool) {
	pid := requestcontext.ParticipantID(r.Context())
	if pid.IsNil() {
		WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ParticipantID{}, false
	}
	return pid, true
}

// PathID parses the chi URL parameter name with parse. On failure it writes
// 400 and returns ok=false.
func PathID[T any](w http.ResponseWriter, r *http.Request, name string, parse func(string) (T, error)) (T, bool) {
	v, err := parse(chi.URLParam(r, name))
	if err != nil {
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+name))
		var zero T
		return zero, false
	}
	return v, true
}
