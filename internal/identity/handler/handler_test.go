package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"festreg/internal/identity/handler/mocks"
	identityModel "festreg/internal/identity/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type IdentityHandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      chi.Router
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)
	h.Register(s.router)
	h.RegisterAdmin(s.router)
}

func (s *IdentityHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func sampleParticipant() *identityModel.Participant {
	return &identityModel.Participant{
		ID:           id.NewParticipantID(),
		PublicID:     "FEST260001",
		Email:        "ada@example.com",
		Name:         "Ada",
		PasswordHash: "$2a$secret",
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *IdentityHandlerSuite) TestCreate() {
	s.Run("201 with public id and no hash", func() {
		p := sampleParticipant()
		s.mockService.EXPECT().Create(gomock.Any(), identityModel.Profile{
			Email: "ada@example.com", Password: "correct horse", Name: "Ada",
		}).Return(p, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/participants",
			map[string]string{"email": "  ada@example.com ", "password": "correct horse", "name": "Ada"}))

		s.Equal(http.StatusCreated, rr.Code)
		s.NotContains(rr.Body.String(), "secret")
		got := testutil.UnmarshalResponse[ParticipantResponse](s.T(), rr)
		s.Equal("FEST260001", got.PublicID)
	})

	s.Run("400 on missing password", func() {
		s.mockService.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/participants",
			map[string]string{"email": "ada@example.com"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("409 when the email is taken", func() {
		s.mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(identityModel.ReasonEmailTaken, dErrors.CodeConflict, "An account with this email already exists"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/participants",
			map[string]string{"email": "ada@example.com", "password": "correct horse"}))
		testutil.AssertErrorReason(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict), string(identityModel.ReasonEmailTaken))
	})
}

func (s *IdentityHandlerSuite) TestLogin() {
	s.Run("issues a bearer token", func() {
		p := sampleParticipant()
		expires := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
		s.mockService.EXPECT().Login(gomock.Any(), "FEST260001", "correct horse").
			Return(&identityModel.Session{Token: "tok", ExpiresAt: expires, Participant: p}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
			map[string]string{"identifier": " FEST260001 ", "password": "correct horse"}))

		s.Equal(http.StatusOK, rr.Code)
		got := testutil.UnmarshalResponse[LoginResponse](s.T(), rr)
		s.Equal("tok", got.AccessToken)
		s.Equal("Bearer", got.TokenType)
		s.True(expires.Equal(got.ExpiresAt))
	})

	s.Run("blocked participant is told so", func() {
		s.mockService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(identityModel.ReasonParticipantBlocked, dErrors.CodeForbidden, "This account is blocked"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
			map[string]string{"identifier": "ada@example.com", "password": "correct horse"}))
		testutil.AssertErrorReason(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden), string(identityModel.ReasonParticipantBlocked))
	})
}

func (s *IdentityHandlerSuite) TestMe() {
	s.Run("401 without session", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/me", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("returns the session participant", func() {
		p := sampleParticipant()
		s.mockService.EXPECT().Get(gomock.Any(), p.ID).Return(p, nil)
		req := testutil.WithParticipant(testutil.NewJSONRequest(s.T(), http.MethodGet, "/me", nil), p.ID)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusOK, rr.Code)
		s.Equal(p.ID, testutil.UnmarshalResponse[ParticipantResponse](s.T(), rr).ID)
	})
}

func (s *IdentityHandlerSuite) TestSanctions() {
	s.Run("block", func() {
		p := sampleParticipant()
		p.Blocked = true
		s.mockService.EXPECT().Block(gomock.Any(), p.ID).Return(p, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/participants/"+p.ID.String()+"/block", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.True(testutil.UnmarshalResponse[ParticipantResponse](s.T(), rr).Blocked)
	})

	s.Run("bad id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/admin/participants/nope", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("unknown participant", func() {
		pid := id.NewParticipantID()
		s.mockService.EXPECT().Unblock(gomock.Any(), pid).
			Return(nil, dErrors.Wrap(identityModel.ReasonParticipantNotFound, dErrors.CodeNotFound, "Participant not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/participants/"+pid.String()+"/unblock", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}
