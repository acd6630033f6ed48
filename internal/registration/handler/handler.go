package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	registrationModel "festreg/internal/registration/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/httputil"
	"festreg/pkg/requestcontext"
)

// Service defines the registration lifecycle operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, eventID id.EventID, actor id.ParticipantID, teamID *id.TeamID) (*registrationModel.Registration, error)
	Cancel(ctx context.Context, registrationID id.RegistrationID, actor id.ParticipantID) (*registrationModel.Registration, error)
	Restore(ctx context.Context, registrationID id.RegistrationID, actor id.ParticipantID, teamID *id.TeamID) (*registrationModel.Registration, error)
	CheckIn(ctx context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error)
	Get(ctx context.Context, registrationID id.RegistrationID, actor id.ParticipantID) (*registrationModel.Registration, error)
	ListMine(ctx context.Context, actor id.ParticipantID) ([]*registrationModel.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*registrationModel.Registration, error)
}

type Handler struct {
	service     Service
	logger      *slog.Logger
	idempotency func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithIdempotency wraps the slot-reserving routes (register, restore).
func WithIdempotency(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.idempotency = mw
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the participant routes. All of them need a session.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.idempotency != nil {
			r.Use(h.idempotency)
		}
		r.Post("/registrations/register", h.HandleRegister)
		r.Post("/registrations/restore", h.HandleRestore)
	})
	r.Patch("/registrations/cancel", h.HandleCancel)
	r.Get("/registrations/{id}", h.HandleGet)
	r.Get("/me/registrations", h.HandleListMine)
}

// RegisterAdmin mounts the admin routes; the caller applies admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/events/{id}/registrations", h.HandleListByEvent)
	r.Post("/admin/registrations/{id}/check-in", h.HandleCheckIn)
}

// HandleRegister handles POST /registrations/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.Register(ctx, req.eventID, actor, req.teamID)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"event_id", req.eventID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

// HandleCancel handles PATCH /registrations/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CancelRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.Cancel(ctx, req.registrationID, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "cancellation failed",
			"request_id", requestID,
			"registration_id", req.registrationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleRestore handles POST /registrations/restore.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RestoreRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.Restore(ctx, req.registrationID, actor, req.teamID)
	if err != nil {
		h.logger.WarnContext(ctx, "restore failed",
			"request_id", requestID,
			"registration_id", req.registrationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	registrationID, ok := httputil.PathID(w, r, "id", id.ParseRegistrationID)
	if !ok {
		return
	}
	reg, err := h.service.Get(r.Context(), registrationID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	regs, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Registrations: nonNil(regs)})
}

func (h *Handler) HandleListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.PathID(w, r, "id", id.ParseEventID)
	if !ok {
		return
	}
	regs, err := h.service.ListByEvent(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Registrations: nonNil(regs)})
}

// HandleCheckIn handles POST /admin/registrations/{id}/check-in.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrationID, ok := httputil.PathID(w, r, "id", id.ParseRegistrationID)
	if !ok {
		return
	}
	reg, err := h.service.CheckIn(ctx, registrationID)
	if err != nil {
		h.logger.WarnContext(ctx, "check-in failed",
			"request_id", requestcontext.RequestID(ctx),
			"registration_id", registrationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// ListResponse wraps registration lists so the payload can grow fields.
type ListResponse struct {
	Registrations []*registrationModel.Registration `json:"registrations"`
}

func nonNil(regs []*registrationModel.Registration) []*registrationModel.Registration {
	if regs == nil {
		return []*registrationModel.Registration{}
	}
	return regs
}
