package registration

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Request(method, path string, body any, headers map[string]string) error
	AsCurrent(method, path string, body any) error
	AsAdmin(method, path string, body any) error
	Status() int
	RawBody() string
	Field(name string) (any, error)
	SetSession(name, token string)
	Use(name string) error
	Current() string
	Remember(key, value string)
	Recall(key string) (string, error)
}

const password = "correct-horse-battery"

// RegisterSteps registers participant, event and registration steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	// Setup
	ctx.Step(`^a participant "([^"]*)" is signed in$`, steps.participantSignedIn)
	ctx.Step(`^a solo event "([^"]*)" with capacity (\d+)$`, steps.soloEvent)
	ctx.Step(`^a team event "([^"]*)" with capacity (\d+) and team size (\d+) to (\d+)$`, steps.teamEvent)
	ctx.Step(`^I act as "([^"]*)"$`, steps.actAs)

	// Teams
	ctx.Step(`^I create team "([^"]*)" for "([^"]*)"$`, steps.createTeam)
	ctx.Step(`^I add "([^"]*)" to team "([^"]*)"$`, steps.addMember)
	ctx.Step(`^I remove "([^"]*)" from team "([^"]*)"$`, steps.removeMember)

	// Lifecycle
	ctx.Step(`^I register for "([^"]*)"$`, steps.registerSolo)
	ctx.Step(`^I register team "([^"]*)" for "([^"]*)"$`, steps.registerTeam)
	ctx.Step(`^I cancel my registration for "([^"]*)"$`, steps.cancel)
	ctx.Step(`^I restore my registration for "([^"]*)"$`, steps.restore)

	// Assertions
	ctx.Step(`^"([^"]*)" should have (\d+) active registrations?$`, steps.activeCountShouldBe)
}

type registrationSteps struct {
	tc TestContext
}

func (s *registrationSteps) participantSignedIn(_ context.Context, name string) error {
	email := fmt.Sprintf("%s.%d@e2e.festreg.test", name, time.Now().UnixNano())
	if err := s.tc.Request(http.MethodPost, "/participants", map[string]string{
		"email": email, "password": password, "name": name,
	}, nil); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("sign up %s: %d %s", name, s.tc.Status(), s.tc.RawBody())
	}
	if err := s.rememberField("participant:"+name, "id"); err != nil {
		return err
	}
	if err := s.rememberField("public_id:"+name, "public_id"); err != nil {
		return err
	}

	if err := s.tc.Request(http.MethodPost, "/auth/login", map[string]string{
		"identifier": email, "password": password,
	}, nil); err != nil {
		return err
	}
	token, err := s.tc.Field("access_token")
	if err != nil {
		return err
	}
	s.tc.SetSession(name, fmt.Sprint(token))
	return nil
}

func (s *registrationSteps) soloEvent(_ context.Context, name string, capacity int) error {
	return s.createEvent(name, map[string]any{"kind": "solo", "capacity": capacity})
}

func (s *registrationSteps) teamEvent(_ context.Context, name string, capacity, minSize, maxSize int) error {
	return s.createEvent(name, map[string]any{
		"kind": "team", "capacity": capacity, "team_min": minSize, "team_max": maxSize,
	})
}

func (s *registrationSteps) createEvent(name string, body map[string]any) error {
	now := time.Now().UTC()
	body["name"] = name
	body["registration_deadline"] = now.Add(24 * time.Hour)
	body["starts_at"] = now.Add(48 * time.Hour)
	if err := s.tc.AsAdmin(http.MethodPost, "/admin/events", body); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("create event %s: %d %s", name, s.tc.Status(), s.tc.RawBody())
	}
	return s.rememberField("event:"+name, "id")
}

func (s *registrationSteps) actAs(_ context.Context, name string) error {
	return s.tc.Use(name)
}

func (s *registrationSteps) createTeam(_ context.Context, team, event string) error {
	eventID, err := s.tc.Recall("event:" + event)
	if err != nil {
		return err
	}
	if err := s.tc.AsCurrent(http.MethodPost, "/teams", map[string]string{"name": team, "event_id": eventID}); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("create team %s: %d %s", team, s.tc.Status(), s.tc.RawBody())
	}
	return s.rememberField("team:"+team, "id")
}

func (s *registrationSteps) addMember(_ context.Context, member, team string) error {
	teamID, err := s.tc.Recall("team:" + team)
	if err != nil {
		return err
	}
	publicID, err := s.tc.Recall("public_id:" + member)
	if err != nil {
		return err
	}
	return s.tc.AsCurrent(http.MethodPost, "/teams/"+teamID+"/members", map[string]string{"identifier": publicID})
}

func (s *registrationSteps) removeMember(_ context.Context, member, team string) error {
	teamID, err := s.tc.Recall("team:" + team)
	if err != nil {
		return err
	}
	pid, err := s.tc.Recall("participant:" + member)
	if err != nil {
		return err
	}
	return s.tc.AsCurrent(http.MethodDelete, "/teams/"+teamID+"/members/"+pid, nil)
}

func (s *registrationSteps) registerSolo(_ context.Context, event string) error {
	eventID, err := s.tc.Recall("event:" + event)
	if err != nil {
		return err
	}
	if err := s.tc.AsCurrent(http.MethodPost, "/registrations/register", map[string]string{"event_id": eventID}); err != nil {
		return err
	}
	return s.rememberRegistration(event)
}

func (s *registrationSteps) registerTeam(_ context.Context, team, event string) error {
	eventID, err := s.tc.Recall("event:" + event)
	if err != nil {
		return err
	}
	teamID, err := s.tc.Recall("team:" + team)
	if err != nil {
		return err
	}
	if err := s.tc.AsCurrent(http.MethodPost, "/registrations/register",
		map[string]string{"event_id": eventID, "team_id": teamID}); err != nil {
		return err
	}
	return s.rememberRegistration(event)
}

func (s *registrationSteps) cancel(_ context.Context, event string) error {
	regID, err := s.registrationFor(event)
	if err != nil {
		return err
	}
	return s.tc.AsCurrent(http.MethodPatch, "/registrations/cancel", map[string]string{"registration_id": regID})
}

func (s *registrationSteps) restore(_ context.Context, event string) error {
	regID, err := s.registrationFor(event)
	if err != nil {
		return err
	}
	return s.tc.AsCurrent(http.MethodPost, "/registrations/restore", map[string]string{"registration_id": regID})
}

func (s *registrationSteps) activeCountShouldBe(_ context.Context, event string, want int) error {
	eventID, err := s.tc.Recall("event:" + event)
	if err != nil {
		return err
	}
	if err := s.tc.AsAdmin(http.MethodGet, "/admin/events/"+eventID, nil); err != nil {
		return err
	}
	got, err := s.tc.Field("active_count")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		return fmt.Errorf("expected %d active registrations for %s, got %v", want, event, got)
	}
	return nil
}

// rememberRegistration keys successful registrations by the acting session
// so later cancel/restore steps can find them.
func (s *registrationSteps) rememberRegistration(event string) error {
	if s.tc.Status() != http.StatusCreated {
		return nil
	}
	return s.rememberField(s.registrationKey(event), "id")
}

func (s *registrationSteps) registrationFor(event string) (string, error) {
	return s.tc.Recall(s.registrationKey(event))
}

func (s *registrationSteps) registrationKey(event string) string {
	return "registration:" + s.tc.Current() + ":" + event
}

func (s *registrationSteps) rememberField(key, field string) error {
	v, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	s.tc.Remember(key, fmt.Sprint(v))
	return nil
}
