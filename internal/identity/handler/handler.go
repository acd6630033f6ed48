package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	identityModel "festreg/internal/identity/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/httputil"
	"festreg/pkg/requestcontext"
)

// Service defines the participant operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, profile identityModel.Profile) (*identityModel.Participant, error)
	Login(ctx context.Context, identifier, secret string) (*identityModel.Session, error)
	Get(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
	Block(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
	Unblock(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
	SoftDelete(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts signup and login.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/participants", h.HandleCreate)
	r.Post("/auth/login", h.HandleLogin)
}

// Register mounts routes that need a session.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

// RegisterAdmin mounts the account sanctions.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/participants/{id}/block", h.HandleBlock)
	r.Post("/admin/participants/{id}/unblock", h.HandleUnblock)
	r.Delete("/admin/participants/{id}", h.HandleDelete)
}

// HandleCreate handles POST /participants.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateParticipantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	participant, err := h.service.Create(ctx, req.Profile())
	if err != nil {
		h.logger.WarnContext(ctx, "participant signup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toParticipantResponse(participant))
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		ExpiresAt:   session.ExpiresAt,
		Participant: toParticipantResponse(session.Participant),
	})
}

// HandleMe handles GET /me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	pid, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	participant, err := h.service.Get(r.Context(), pid)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toParticipantResponse(participant))
}

func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	h.sanction(w, r, "block", h.service.Block)
}

func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	h.sanction(w, r, "unblock", h.service.Unblock)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.sanction(w, r, "delete", h.service.SoftDelete)
}

func (h *Handler) sanction(w http.ResponseWriter, r *http.Request, action string, apply func(context.Context, id.ParticipantID) (*identityModel.Participant, error)) {
	ctx := r.Context()
	pid, ok := httputil.PathID(w, r, "id", id.ParseParticipantID)
	if !ok {
		return
	}
	participant, err := apply(ctx, pid)
	if err != nil {
		h.logger.WarnContext(ctx, "participant "+action+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"participant_id", pid.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toParticipantResponse(participant))
}
