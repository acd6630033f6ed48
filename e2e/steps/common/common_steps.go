package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Status() int
	RawBody() string
	Field(name string) (any, error)
}

// RegisterSteps registers response assertion steps shared by every feature
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the error reason should be "([^"]*)"$`, steps.reasonShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.RawBody())
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, want string) error {
	return s.fieldShouldBe(ctx, "error", want)
}

func (s *commonSteps) reasonShouldBe(ctx context.Context, want string) error {
	return s.fieldShouldBe(ctx, "reason", want)
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}
