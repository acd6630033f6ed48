package main

import (
	"log/slog"

	"festreg/internal/capacity"
	eventHandler "festreg/internal/event/handler"
	eventService "festreg/internal/event/service"
	"festreg/internal/idempotency"
	identityHandler "festreg/internal/identity/handler"
	identityService "festreg/internal/identity/service"
	jwttoken "festreg/internal/jwt_token"
	"festreg/internal/platform/config"
	"festreg/internal/platform/metrics"
	registrationHandler "festreg/internal/registration/handler"
	registrationService "festreg/internal/registration/service"
	"festreg/internal/sequence"
	teamHandler "festreg/internal/team/handler"
	teamService "festreg/internal/team/service"
	httptransport "festreg/internal/transport/http"
)

const (
	tokenIssuer   = "festreg"
	tokenAudience = "festreg-api"
)

type app struct {
	tokens   *jwttoken.JWTService
	handlers httptransport.Handlers
}

func buildApp(cfg config.Server, log *slog.Logger, m *metrics.Metrics, inf *infra) *app {
	backend := inf.backend
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)

	identity := identityService.New(backend.Participants,
		sequence.NewAllocator(backend.Counters, sequence.WithLogger(log), sequence.WithMetrics(m)),
		sequence.PublicIDFormat{Prefix: cfg.PublicID.Prefix, Width: cfg.PublicID.Width},
		identityService.WithLogger(log),
		identityService.WithMetrics(m),
		identityService.WithAuditPublisher(inf.audit),
		identityService.WithTokenIssuer(tokens, cfg.SessionTTL),
	)
	tracker := capacity.NewTracker(backend.Stores, capacity.WithMetrics(m))
	events := eventService.New(backend.Events, backend.UoW, tracker,
		eventService.WithLogger(log),
		eventService.WithAuditPublisher(inf.audit),
	)
	teams := teamService.New(backend.Stores, backend.UoW, identity,
		teamService.WithLogger(log),
		teamService.WithAuditPublisher(inf.audit),
	)
	registrations := registrationService.New(backend.Stores, backend.UoW, tracker, identity,
		registrationService.WithLogger(log),
		registrationService.WithMetrics(m),
		registrationService.WithAuditPublisher(inf.audit),
	)
	idem := idempotency.NewMiddleware(inf.idempotency, cfg.Redis.IdempotencyTTL, log)

	return &app{
		tokens: tokens,
		handlers: httptransport.Handlers{
			Identity:      identityHandler.New(identity, log),
			Events:        eventHandler.New(events, log),
			Teams:         teamHandler.New(teams, log),
			Registrations: registrationHandler.New(registrations, log, registrationHandler.WithIdempotency(idem.Handler)),
		},
	}
}
