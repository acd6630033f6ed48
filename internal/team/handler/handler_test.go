package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"festreg/internal/team/handler/mocks"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type TeamHandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      chi.Router
	leader      id.ParticipantID
}

func TestTeamHandlerSuite(t *testing.T) {
	suite.Run(t, new(TeamHandlerSuite))
}

func (s *TeamHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	s.leader = id.NewParticipantID()
}

func (s *TeamHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *TeamHandlerSuite) as(req *http.Request) *http.Request {
	return testutil.WithParticipant(req, s.leader)
}

func (s *TeamHandlerSuite) TestCreate() {
	eventID := id.NewEventID()

	s.Run("leader is the session participant", func() {
		team := &teamModel.Team{ID: id.NewTeamID(), EventID: eventID, Name: "Rockets", LeaderID: s.leader, MemberIDs: []id.ParticipantID{}}
		s.mockService.EXPECT().Create(gomock.Any(), s.leader, "Rockets", eventID).Return(team, nil)

		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/teams",
			map[string]string{"name": "Rockets", "event_id": eventID.String()})))
		s.Equal(http.StatusCreated, rr.Code)
		got := testutil.UnmarshalResponse[teamModel.Team](s.T(), rr)
		s.Equal(team.ID, got.ID)
	})

	s.Run("requires a session", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/teams",
			map[string]string{"name": "Rockets", "event_id": eventID.String()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("bad event id", func() {
		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/teams",
			map[string]string{"name": "Rockets", "event_id": "42"})))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *TeamHandlerSuite) TestMembers() {
	teamID := id.NewTeamID()
	memberID := id.NewParticipantID()

	s.Run("add by identifier", func() {
		s.mockService.EXPECT().AddMember(gomock.Any(), teamID, s.leader, "FEST260002").
			Return(&teamModel.Team{ID: teamID, LeaderID: s.leader, MemberIDs: []id.ParticipantID{memberID}}, nil)
		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/teams/"+teamID.String()+"/members",
			map[string]string{"identifier": "FEST260002"})))
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("non-leader gets 403", func() {
		s.mockService.EXPECT().AddMember(gomock.Any(), teamID, s.leader, "bob@example.com").
			Return(nil, dErrors.Wrap(teamModel.ReasonNotLeader, dErrors.CodeForbidden, "Only the team leader can do this"))
		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/teams/"+teamID.String()+"/members",
			map[string]string{"identifier": "bob@example.com"})))
		testutil.AssertErrorReason(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden), string(teamModel.ReasonNotLeader))
	})

	s.Run("remove", func() {
		s.mockService.EXPECT().RemoveMember(gomock.Any(), teamID, s.leader, memberID).
			Return(&teamModel.Team{ID: teamID, LeaderID: s.leader, MemberIDs: []id.ParticipantID{}}, nil)
		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodDelete,
			"/teams/"+teamID.String()+"/members/"+memberID.String(), nil)))
		s.Equal(http.StatusOK, rr.Code)
	})
}

func (s *TeamHandlerSuite) TestDelete() {
	teamID := id.NewTeamID()

	s.Run("refused while registered", func() {
		s.mockService.EXPECT().Delete(gomock.Any(), teamID, s.leader).
			Return(dErrors.Wrap(teamModel.ReasonTeamHasActiveRegistration, dErrors.CodeConflict, "Cancel the team's registration first"))
		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/teams/"+teamID.String(), nil)))
		testutil.AssertErrorReason(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict), string(teamModel.ReasonTeamHasActiveRegistration))
	})

	s.Run("deleted", func() {
		s.mockService.EXPECT().Delete(gomock.Any(), teamID, s.leader).Return(nil)
		rr := testutil.DoRequest(s.router, s.as(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/teams/"+teamID.String(), nil)))
		s.Equal(http.StatusNoContent, rr.Code)
	})
}
