// Package service implements participant signup, authentication and the
// admin account sanctions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	identityModel "festreg/internal/identity/models"
	"festreg/internal/identity/secrets"
	"festreg/internal/platform/metrics"
	"festreg/internal/sequence"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	"festreg/pkg/platform/sentinel"
	"festreg/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *identityModel.Participant) error
	FindByID(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
	FindByEmail(ctx context.Context, email string) (*identityModel.Participant, error)
	FindByPublicID(ctx context.Context, publicID string) (*identityModel.Participant, error)
	Update(ctx context.Context, p *identityModel.Participant) error
}

type SequenceAllocator interface {
	Next(ctx context.Context, namespace string) (int64, error)
}

type TokenIssuer interface {
	IssueSession(participantID id.ParticipantID, publicID string, ttl time.Duration) (string, time.Time, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store      Store
	sequences  SequenceAllocator
	format     sequence.PublicIDFormat
	tokens     TokenIssuer
	sessionTTL time.Duration
	hashCost   int

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

// WithTokenIssuer enables Login.
func WithTokenIssuer(issuer TokenIssuer, ttl time.Duration) Option {
	return func(s *Service) {
		s.tokens = issuer
		s.sessionTTL = ttl
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func New(store Store, sequences SequenceAllocator, format sequence.PublicIDFormat, opts ...Option) *Service {
	s := &Service{
		store:      store,
		sequences:  sequences,
		format:     format,
		sessionTTL: 12 * time.Hour,
		hashCost:   secrets.DefaultCost,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create signs a participant up. The email pre-check only produces a clean
// error early; the store's unique constraint decides concurrent races.
func (s *Service) Create(ctx context.Context, profile identityModel.Profile) (*identityModel.Participant, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.FindByEmail(ctx, profile.Email); err == nil {
		return nil, errEmailTaken()
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "failed to check email")
	}

	hash, err := secrets.Hash(profile.Password, s.hashCost)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	seq, err := s.sequences.Next(ctx, sequence.NamespaceParticipant)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	participant := &identityModel.Participant{
		ID:           id.NewParticipantID(),
		PublicID:     s.format.Format(seq, now),
		Sequence:     seq,
		Email:        profile.Email,
		Name:         profile.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, participant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, errEmailTaken()
		}
		return nil, wrapStoreErr(err, "failed to create participant")
	}

	s.metrics.IncParticipantsCreated()
	s.emit(ctx, audit.EventParticipantCreated, participant, "")
	return participant, nil
}

// Authenticate accepts an email or a public ID. Account state is only
// revealed to callers who present the right secret.
func (s *Service) Authenticate(ctx context.Context, identifier, secret string) (*identityModel.Participant, error) {
	participant, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if err := secrets.Verify(secret, participant.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			s.emit(ctx, audit.EventLoginFailed, participant, string(identityModel.ReasonInvalidCredentials))
			return nil, dErrors.Wrap(identityModel.ReasonInvalidCredentials, dErrors.CodeUnauthorized, "Invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	if err := participant.EnsureActive(); err != nil {
		s.emit(ctx, audit.EventLoginFailed, participant, string(identityModel.ReasonParticipantBlocked))
		return nil, err
	}
	return participant, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, identifier, secret string) (*identityModel.Session, error) {
	if s.tokens == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "sessions are not configured")
	}
	participant, err := s.Authenticate(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.IssueSession(participant.ID, participant.PublicID, s.sessionTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}
	s.emit(ctx, audit.EventLoginSucceeded, participant, "")
	return &identityModel.Session{Token: token, ExpiresAt: expiresAt, Participant: participant}, nil
}

// Resolve looks a participant up by email or public ID.
func (s *Service) Resolve(ctx context.Context, identifier string) (*identityModel.Participant, error) {
	ident := identityModel.Identifier(identifier)
	key := ident.Normalized()
	if key == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	var (
		participant *identityModel.Participant
		err         error
	)
	if ident.IsEmail() {
		participant, err = s.store.FindByEmail(ctx, key)
	} else {
		participant, err = s.store.FindByPublicID(ctx, key)
	}
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return participant, nil
}

func (s *Service) Get(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	participant, err := s.store.FindByID(ctx, participantID)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return participant, nil
}

// RequireActive loads a participant and fails unless they may act.
func (s *Service) RequireActive(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	participant, err := s.Get(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if err := participant.EnsureActive(); err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *Service) Block(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	return s.mutate(ctx, participantID, audit.EventParticipantBlocked, func(p *identityModel.Participant, now time.Time) {
		p.Block(now)
	})
}

func (s *Service) Unblock(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	return s.mutate(ctx, participantID, audit.EventParticipantUnblocked, func(p *identityModel.Participant, now time.Time) {
		p.Unblock(now)
	})
}

// SoftDelete hides the participant from sign-in. The record and its public ID
// are kept.
func (s *Service) SoftDelete(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error) {
	return s.mutate(ctx, participantID, audit.EventParticipantDeleted, func(p *identityModel.Participant, now time.Time) {
		p.SoftDelete(now)
	})
}

func (s *Service) mutate(ctx context.Context, participantID id.ParticipantID, action audit.AuditEvent, apply func(*identityModel.Participant, time.Time)) (*identityModel.Participant, error) {
	participant, err := s.Get(ctx, participantID)
	if err != nil {
		return nil, err
	}
	apply(participant, requestcontext.Now(ctx).UTC())
	if err := s.store.Update(ctx, participant); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errParticipantNotFound()
		}
		return nil, wrapStoreErr(err, "failed to update participant")
	}
	s.emit(ctx, action, participant, "")
	return participant, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, p *identityModel.Participant, reason string) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"participant_id", p.ID.String(),
		"public_id", p.PublicID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(ctx, action, p.ID, p.PublicID)
	event.Reason = reason
	if actor := requestcontext.ParticipantID(ctx); !actor.IsNil() && actor != p.ID {
		event.ActorID = actor.String()
	}
	event.Snapshot = audit.Snapshot(p)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(action), "error", err)
	}
}

func errEmailTaken() error {
	return dErrors.Wrap(identityModel.ReasonEmailTaken, dErrors.CodeConflict, "An account with this email already exists")
}

func errParticipantNotFound() error {
	return dErrors.Wrap(identityModel.ReasonParticipantNotFound, dErrors.CodeNotFound, "Participant not found")
}

func translateLookupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errParticipantNotFound()
	}
	return wrapStoreErr(err, "failed to load participant")
}

func wrapStoreErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeDependency, msg)
}
