package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/httputil"
	"festreg/pkg/requestcontext"
)

// Service defines the team operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor id.ParticipantID, name string, eventID id.EventID) (*teamModel.Team, error)
	Get(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error)
	AddMember(ctx context.Context, teamID id.TeamID, actor id.ParticipantID, identifier string) (*teamModel.Team, error)
	RemoveMember(ctx context.Context, teamID id.TeamID, actor, memberID id.ParticipantID) (*teamModel.Team, error)
	Delete(ctx context.Context, teamID id.TeamID, actor id.ParticipantID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the team routes; all of them need a session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/teams", h.HandleCreate)
	r.Get("/teams/{id}", h.HandleGet)
	r.Post("/teams/{id}/members", h.HandleAddMember)
	r.Delete("/teams/{id}/members/{memberId}", h.HandleRemoveMember)
	r.Delete("/teams/{id}", h.HandleDelete)
}

// HandleCreate handles POST /teams.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateTeamRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	team, err := h.service.Create(ctx, actor, req.Name, req.ParsedEventID())
	if err != nil {
		h.logger.WarnContext(ctx, "team creation failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, team)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := httputil.RequireParticipant(w, r); !ok {
		return
	}
	teamID, ok := httputil.PathID(w, r, "id", id.ParseTeamID)
	if !ok {
		return
	}
	team, err := h.service.Get(r.Context(), teamID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, team)
}

// HandleAddMember handles POST /teams/{id}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	teamID, ok := httputil.PathID(w, r, "id", id.ParseTeamID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddMemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	team, err := h.service.AddMember(ctx, teamID, actor, req.Identifier)
	if err != nil {
		h.logger.WarnContext(ctx, "add member failed",
			"request_id", requestID,
			"team_id", teamID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, team)
}

// HandleRemoveMember handles DELETE /teams/{id}/members/{memberId}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	teamID, ok := httputil.PathID(w, r, "id", id.ParseTeamID)
	if !ok {
		return
	}
	memberID, ok := httputil.PathID(w, r, "memberId", id.ParseParticipantID)
	if !ok {
		return
	}
	team, err := h.service.RemoveMember(r.Context(), teamID, actor, memberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, team)
}

// HandleDelete handles DELETE /teams/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.RequireParticipant(w, r)
	if !ok {
		return
	}
	teamID, ok := httputil.PathID(w, r, "id", id.ParseTeamID)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), teamID, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
