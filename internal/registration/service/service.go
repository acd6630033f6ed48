// Package service is the registration lifecycle manager. Every transition
// that can change an event's active count runs inside that event's unit of
// work, and the capacity check and the write it gates share that boundary.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"festreg/internal/capacity"
	identityModel "festreg/internal/identity/models"
	"festreg/internal/platform/metrics"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	"festreg/pkg/platform/sentinel"
	"festreg/pkg/requestcontext"
)

const (
	opRegister = "register"
	opCancel   = "cancel"
	opRestore  = "restore"
	opCheckIn  = "check_in"
)

var tracer = otel.Tracer("festreg/internal/registration/service")

// ParticipantGate admits active participants.
type ParticipantGate interface {
	RequireActive(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	stores       storage.Stores
	uow          storage.UnitOfWork
	tracker      *capacity.Tracker
	participants ParticipantGate

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(stores storage.Stores, uow storage.UnitOfWork, tracker *capacity.Tracker, participants ParticipantGate, opts ...Option) *Service {
	s := &Service{
		stores:       stores,
		uow:          uow,
		tracker:      tracker,
		participants: participants,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// committed is what a unit of work hands back for logging and audit.
type committed struct {
	registration *registrationModel.Registration
	// owner is the solo participant or the team leader.
	owner     id.ParticipantID
	remaining int
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "registration."+op)
	span.SetAttributes(attrs...)
	return ctx, span
}

// finish records the outcome of op on span and in metrics.
func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		s.metrics.ObserveRegistrationOp(op, "success")
		return
	}
	outcome := string(dErrors.CodeOf(err))
	if reason, ok := dErrors.ReasonOf(err); ok {
		outcome = string(reason)
	}
	s.metrics.ObserveRegistrationOp(op, outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, c committed) {
	r := c.registration
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"registration_id", r.ID.String(),
		"event_id", r.EventID.String(),
		"registrant", r.Registrant.String(),
		"participant_id", requestcontext.ParticipantID(ctx).String(),
		"status", string(r.Status()),
		"remaining", c.remaining,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher == nil {
		return
	}
	entry := audit.NewEvent(ctx, action, c.owner, r.Registrant.String())
	entry.EventID = r.EventID.String()
	if actor := requestcontext.ParticipantID(ctx); !actor.IsNil() && actor != c.owner {
		entry.ActorID = actor.String()
	} else if actor.IsNil() {
		entry.ActorID = "admin"
	}
	entry.Snapshot = audit.Snapshot(r)
	if err := s.auditPublisher.Emit(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(action), "error", err)
	}
}

// emitRejected records refused registrations that carry a domain reason.
func (s *Service) emitRejected(ctx context.Context, eventID id.EventID, actor id.ParticipantID, err error) {
	reason, ok := dErrors.ReasonOf(err)
	if !ok || s.auditPublisher == nil {
		return
	}
	entry := audit.NewEvent(ctx, audit.EventRegistrationRejected, actor, registrationModel.ParticipantRegistrant(actor).String())
	entry.EventID = eventID.String()
	entry.Reason = string(reason)
	if emitErr := s.auditPublisher.Emit(ctx, entry); emitErr != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(audit.EventRegistrationRejected), "error", emitErr)
	}
}

// loadEventID finds which unit of work a registration belongs to.
func (s *Service) loadEventID(ctx context.Context, registrationID id.RegistrationID) (id.EventID, error) {
	r, err := s.stores.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return id.EventID{}, translateLookupErr(err)
	}
	return r.EventID, nil
}

func translateLookupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return registrationModel.ErrNotFound()
	}
	return wrapStoreErr(err, "failed to load registration")
}

func toDomainErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return wrapStoreErr(err, "registration transaction failed")
}

func wrapStoreErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeDependency, msg)
}
