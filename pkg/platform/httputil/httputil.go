// Package httputil holds the JSON request/response helpers shared by handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "festreg/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request bodies that check and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// Normalizable request bodies trim and canonicalise fields before validation.
type Normalizable interface {
	Normalize()
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as the JSON error envelope. Foreign errors and
// internal errors never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.Message(err)
		if reason, ok := dErrors.ReasonOf(err); ok {
			resp.Reason = string(reason)
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeJSON decodes the request body into T, rejecting unknown fields and
// trailing data.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
			return nil, dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "request body is too large")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid JSON request body")
	}
	if dec.More() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON object")
	}
	return &req, nil
}

// DecodeAndPrepare decodes, normalizes and validates a request body. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, err := DecodeJSON[T](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err, "request_id", requestID)
		WriteError(w, err)
		return nil, false
	}
	if n, ok := any(req).(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
			WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}
