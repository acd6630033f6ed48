package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/requestcontext"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "error_description should be omitted for internal errors")
	})

	t.Run("foreign error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal_error", decodeBody(t, w)["error"])
	})

	t.Run("capacity error carries description and reason", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(dErrors.Reason("event_full"), dErrors.CodeCapacityExceeded, "This event is full"))

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "capacity_exceeded", body["error"])
		assert.Equal(t, "This event is full", body["error_description"])
		assert.Equal(t, "event_full", body["reason"])
	})
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *sampleRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantCode   string
	}{
		{"valid body is normalized", `{"name":"  Ada  "}`, true, http.StatusOK, ""},
		{"empty body", ``, false, http.StatusBadRequest, "bad_request"},
		{"malformed json", `{"name":`, false, http.StatusBadRequest, "bad_request"},
		{"unknown field", `{"name":"a","extra":1}`, false, http.StatusBadRequest, "bad_request"},
		{"trailing object", `{"name":"a"}{"name":"b"}`, false, http.StatusBadRequest, "bad_request"},
		{"validation failure", `{"name":"   "}`, false, http.StatusBadRequest, "validation_error"},
		{"oversized body", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false, http.StatusRequestEntityTooLarge, "payload_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			req, ok := DecodeAndPrepare[sampleRequest](w, r, logger, r.Context(), "req-1")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, req)
				assert.Equal(t, "Ada", req.Name)
				return
			}
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["error"])
		})
	}
}

func TestPathID(t *testing.T) {
	router := chi.NewRouter()
	var got id.EventID
	router.Get("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := PathID(w, r, "id", id.ParseEventID)
		if !ok {
			return
		}
		got = eventID
		w.WriteHeader(http.StatusNoContent)
	})

	eventID := id.NewEventID()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+eventID.String(), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, eventID, got)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
}

func TestRequireParticipant(t *testing.T) {
	w := httptest.NewRecorder()
	_, ok := RequireParticipant(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	pid := id.NewParticipantID()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(requestcontext.WithParticipantID(r.Context(), pid))
	got, ok := RequireParticipant(httptest.NewRecorder(), r)
	assert.True(t, ok)
	assert.Equal(t, pid, got)
}
