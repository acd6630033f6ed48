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

	"festreg/internal/event/handler/mocks"
	eventModel "festreg/internal/event/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type EventHandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      chi.Router
	deadline    time.Time
}

func TestEventHandlerSuite(t *testing.T) {
	suite.Run(t, new(EventHandlerSuite))
}

func (s *EventHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)
	h.RegisterAdmin(s.router)
	s.deadline = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *EventHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EventHandlerSuite) TestCreate() {
	s.Run("team event maps bounds", func() {
		s.mockService.EXPECT().Create(gomock.Any(), eventModel.NewEventParams{
			Name:                 "Relay",
			Kind:                 eventModel.KindTeam,
			Capacity:             8,
			RegistrationDeadline: s.deadline,
			StartsAt:             s.deadline.Add(time.Hour),
			TeamBounds:           &eventModel.TeamBounds{Min: 2, Max: 4},
		}).Return(&eventModel.Event{ID: id.NewEventID(), Name: "Relay", Kind: eventModel.KindTeam}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/events", map[string]any{
			"name":                  " Relay ",
			"kind":                  "team",
			"capacity":              8,
			"registration_deadline": s.deadline,
			"starts_at":             s.deadline.Add(time.Hour),
			"team_min":              2,
			"team_max":              4,
		}))
		s.Equal(http.StatusCreated, rr.Code, rr.Body.String())
	})

	s.Run("unknown kind", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/events", map[string]any{
			"name": "Relay", "kind": "duo", "capacity": 8,
		}))
		testutil.AssertErrorReason(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation), string(eventModel.ReasonInvalidEvent))
	})

	s.Run("half-specified bounds", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/events", map[string]any{
			"name": "Relay", "kind": "team", "capacity": 8, "team_min": 2,
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *EventHandlerSuite) TestGet() {
	s.Run("deleted event is 404", func() {
		eventID := id.NewEventID()
		s.mockService.EXPECT().Get(gomock.Any(), eventID).
			Return(nil, dErrors.Wrap(eventModel.ReasonEventDeleted, dErrors.CodeNotFound, "Event not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/events/"+eventID.String(), nil))
		testutil.AssertErrorReason(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound), string(eventModel.ReasonEventDeleted))
	})

	s.Run("admin details include the active count", func() {
		eventID := id.NewEventID()
		s.mockService.EXPECT().Details(gomock.Any(), eventID).
			Return(&eventModel.Details{Event: &eventModel.Event{ID: eventID, Capacity: 5}, ActiveCount: 3, Remaining: 2}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/events/"+eventID.String(), nil))
		s.Equal(http.StatusOK, rr.Code)
		got := testutil.UnmarshalResponse[eventModel.Details](s.T(), rr)
		s.Equal(3, got.ActiveCount)
		s.Equal(2, got.Remaining)
	})
}

func (s *EventHandlerSuite) TestUpdateCapacity() {
	eventID := id.NewEventID()
	path := "/admin/events/" + eventID.String() + "/capacity"

	s.Run("below active count is 409", func() {
		s.mockService.EXPECT().UpdateCapacity(gomock.Any(), eventID, 2).
			Return(nil, dErrors.Wrap(eventModel.ReasonCapacityBelowActive, dErrors.CodeConflict, "Capacity cannot be lowered"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch, path, map[string]int{"capacity": 2}))
		testutil.AssertErrorReason(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict), string(eventModel.ReasonCapacityBelowActive))
	})

	s.Run("zero capacity never reaches the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch, path, map[string]int{"capacity": 0}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *EventHandlerSuite) TestDelete() {
	eventID := id.NewEventID()
	s.mockService.EXPECT().SoftDelete(gomock.Any(), eventID).Return(nil)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/admin/events/"+eventID.String(), nil))
	s.Equal(http.StatusNoContent, rr.Code)
}
