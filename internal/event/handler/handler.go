package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	eventModel "festreg/internal/event/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/httputil"
	"festreg/pkg/requestcontext"
)

// Service defines the event operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, params eventModel.NewEventParams) (*eventModel.Event, error)
	Get(ctx context.Context, eventID id.EventID) (*eventModel.Event, error)
	Details(ctx context.Context, eventID id.EventID) (*eventModel.Details, error)
	UpdateCapacity(ctx context.Context, eventID id.EventID, capacity int) (*eventModel.Event, error)
	SoftDelete(ctx context.Context, eventID id.EventID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/events/{id}", h.HandleGet)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/events", h.HandleCreate)
	r.Get("/admin/events/{id}", h.HandleDetails)
	r.Patch("/admin/events/{id}/capacity", h.HandleUpdateCapacity)
	r.Delete("/admin/events/{id}", h.HandleDelete)
}

// HandleCreate handles POST /admin/events.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	event, err := h.service.Create(ctx, req.Params())
	if err != nil {
		h.logger.WarnContext(ctx, "event creation failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

// HandleGet handles GET /events/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.PathID(w, r, "id", id.ParseEventID)
	if !ok {
		return
	}
	event, err := h.service.Get(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// HandleDetails handles GET /admin/events/{id}.
func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.PathID(w, r, "id", id.ParseEventID)
	if !ok {
		return
	}
	details, err := h.service.Details(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

// HandleUpdateCapacity handles PATCH /admin/events/{id}/capacity.
func (h *Handler) HandleUpdateCapacity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	eventID, ok := httputil.PathID(w, r, "id", id.ParseEventID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCapacityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	event, err := h.service.UpdateCapacity(ctx, eventID, req.Capacity)
	if err != nil {
		h.logger.WarnContext(ctx, "capacity update failed",
			"request_id", requestID,
			"event_id", eventID.String(),
			"capacity", req.Capacity,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// HandleDelete handles DELETE /admin/events/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.PathID(w, r, "id", id.ParseEventID)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(r.Context(), eventID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
