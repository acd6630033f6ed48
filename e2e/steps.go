package e2e

import (
	"github.com/cucumber/godog"

	"festreg/e2e/steps/common"
	"festreg/e2e/steps/registration"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic response assertions
	common.RegisterSteps(ctx, tc)

	// Participants, events and the registration lifecycle
	registration.RegisterSteps(ctx, tc)
}
