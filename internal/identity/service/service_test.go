package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	identityModel "festreg/internal/identity/models"
	"festreg/internal/sequence"
	"festreg/internal/storage/memory"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	auditmemory "festreg/pkg/platform/audit/store/memory"
	"festreg/pkg/requestcontext"
)

type fakeIssuer struct{}

func (fakeIssuer) IssueSession(pid id.ParticipantID, publicID string, ttl time.Duration) (string, time.Time, error) {
	return "token-" + publicID, time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC), nil
}

type failingCounter struct{}

func (failingCounter) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, e audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

type IdentityServiceSuite struct {
	suite.Suite
	service   *Service
	publisher *recordingPublisher
	ctx       context.Context
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	backend := memory.New()
	s.publisher = &recordingPublisher{}
	s.service = New(
		backend.Participants,
		sequence.NewAllocator(backend.Counters),
		sequence.PublicIDFormat{Prefix: "FEST", Width: 4},
		WithHashCost(bcrypt.MinCost),
		WithTokenIssuer(fakeIssuer{}, time.Hour),
		WithAuditPublisher(s.publisher),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func (s *IdentityServiceSuite) signup(email string) *identityModel.Participant {
	p, err := s.service.Create(s.ctx, identityModel.Profile{Email: email, Password: "correct horse", Name: "Ada"})
	s.Require().NoError(err)
	return p
}

func (s *IdentityServiceSuite) TestCreate() {
	s.Run("assigns sequential public ids", func() {
		first := s.signup("ada@example.com")
		second := s.signup("bob@example.com")
		s.Equal("FEST260001", first.PublicID)
		s.Equal("FEST260002", second.PublicID)
		s.NotEqual("correct horse", first.PasswordHash)
		s.Contains(s.publisher.actions(), string(audit.EventParticipantCreated))
	})

	s.Run("rejects a taken email regardless of case", func() {
		_, err := s.service.Create(s.ctx, identityModel.Profile{Email: "ADA@example.com", Password: "correct horse", Name: "Imposter"})
		s.ErrorIs(err, identityModel.ReasonEmailTaken)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid profile", func() {
		_, err := s.service.Create(s.ctx, identityModel.Profile{Email: "x@example.com", Password: "short", Name: "X"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IdentityServiceSuite) TestCreateFailsFastWithoutSequence() {
	backend := memory.New()
	svc := New(backend.Participants, sequence.NewAllocator(failingCounter{}), sequence.PublicIDFormat{Prefix: "FEST", Width: 4},
		WithHashCost(bcrypt.MinCost))

	_, err := svc.Create(s.ctx, identityModel.Profile{Email: "ada@example.com", Password: "correct horse", Name: "Ada"})
	s.True(dErrors.HasCode(err, dErrors.CodeDependency))

	_, err = backend.Participants.FindByEmail(s.ctx, "ada@example.com")
	s.Error(err, "no participant may be stored without a sequence")
}

// TestConcurrentCreatesYieldUniqueIDs fires parallel signups and checks no
// public ID is handed out twice.
func (s *IdentityServiceSuite) TestConcurrentCreatesYieldUniqueIDs() {
	const n = 40
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.service.Create(s.ctx, identityModel.Profile{
				Email:    fmt.Sprintf("p%d@example.com", i),
				Password: "correct horse",
				Name:     "P",
			})
			if err == nil {
				ids <- p.PublicID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for publicID := range ids {
		s.False(seen[publicID], "duplicate public id %s", publicID)
		seen[publicID] = true
	}
	s.Len(seen, n)
}

func (s *IdentityServiceSuite) TestConcurrentDuplicateEmail() {
	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Create(s.ctx, identityModel.Profile{Email: "same@example.com", Password: "correct horse", Name: "Same"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, identityModel.ReasonEmailTaken):
				conflicts++
			}
		}()
	}
	wg.Wait()
	s.Equal(1, successes)
	s.Equal(n-1, conflicts)
}

func (s *IdentityServiceSuite) TestLowercasePrefixStaysResolvable() {
	backend := memory.New()
	svc := New(
		backend.Participants,
		sequence.NewAllocator(backend.Counters),
		sequence.PublicIDFormat{Prefix: "fest-", Width: 4},
		WithHashCost(bcrypt.MinCost),
		WithTokenIssuer(fakeIssuer{}, time.Hour),
	)
	p, err := svc.Create(s.ctx, identityModel.Profile{Email: "ada@example.com", Password: "correct horse", Name: "Ada"})
	s.Require().NoError(err)
	s.Equal("FEST-260001", p.PublicID)

	got, err := svc.Authenticate(s.ctx, p.PublicID, "correct horse")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	resolved, err := svc.Resolve(s.ctx, "fest-260001")
	s.Require().NoError(err)
	s.Equal(p.ID, resolved.ID)
}

func (s *IdentityServiceSuite) TestAuthenticate() {
	p := s.signup("ada@example.com")

	s.Run("by email", func() {
		got, err := s.service.Authenticate(s.ctx, " ADA@example.com ", "correct horse")
		s.Require().NoError(err)
		s.Equal(p.ID, got.ID)
	})

	s.Run("by public id", func() {
		got, err := s.service.Authenticate(s.ctx, "fest260001", "correct horse")
		s.Require().NoError(err)
		s.Equal(p.ID, got.ID)
	})

	s.Run("wrong secret", func() {
		_, err := s.service.Authenticate(s.ctx, "ada@example.com", "wrong password")
		s.ErrorIs(err, identityModel.ReasonInvalidCredentials)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown identifier", func() {
		_, err := s.service.Authenticate(s.ctx, "nobody@example.com", "correct horse")
		s.ErrorIs(err, identityModel.ReasonParticipantNotFound)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("blocked participant fails distinctly", func() {
		_, err := s.service.Block(s.ctx, p.ID)
		s.Require().NoError(err)
		_, err = s.service.Authenticate(s.ctx, "ada@example.com", "correct horse")
		s.ErrorIs(err, identityModel.ReasonParticipantBlocked)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unblock restores access", func() {
		_, err := s.service.Unblock(s.ctx, p.ID)
		s.Require().NoError(err)
		_, err = s.service.Authenticate(s.ctx, "ada@example.com", "correct horse")
		s.NoError(err)
	})

	s.Run("soft-deleted participant reads as blocked", func() {
		_, err := s.service.SoftDelete(s.ctx, p.ID)
		s.Require().NoError(err)
		_, err = s.service.Authenticate(s.ctx, "ada@example.com", "correct horse")
		s.ErrorIs(err, identityModel.ReasonParticipantBlocked)
		_, err = s.service.RequireActive(s.ctx, p.ID)
		s.ErrorIs(err, identityModel.ReasonParticipantBlocked)
	})
}

func (s *IdentityServiceSuite) TestLogin() {
	p := s.signup("ada@example.com")
	session, err := s.service.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)
	s.Equal("token-"+p.PublicID, session.Token)
	s.Equal(p.ID, session.Participant.ID)
	s.Contains(s.publisher.actions(), string(audit.EventLoginSucceeded))
}

func (s *IdentityServiceSuite) TestAuditReachesStore() {
	store := auditmemory.NewInMemoryStore()
	svc := New(memory.New().Participants, sequence.NewAllocator(memory.NewCounterStore()),
		sequence.PublicIDFormat{Prefix: "FEST", Width: 4},
		WithHashCost(bcrypt.MinCost),
		WithAuditPublisher(auditPublisherFunc(store.Append)),
	)
	p, err := svc.Create(s.ctx, identityModel.Profile{Email: "ada@example.com", Password: "correct horse", Name: "Ada"})
	s.Require().NoError(err)

	trail, err := store.ListByParticipant(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(string(audit.EventParticipantCreated), trail[0].Action)
	s.Equal(p.PublicID, trail[0].Subject)
}

type auditPublisherFunc func(context.Context, audit.Event) error

func (f auditPublisherFunc) Emit(ctx context.Context, e audit.Event) error { return f(ctx, e) }
