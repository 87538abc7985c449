package e2e

import (
	"github.com/cucumber/godog"

	"sigil/e2e/steps/attestation"
	"sigil/e2e/steps/common"
	"sigil/e2e/steps/credential"
	"sigil/e2e/steps/token"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register issuance-specific steps
	attestation.RegisterSteps(ctx, tc)
	credential.RegisterSteps(ctx, tc)
	token.RegisterSteps(ctx, tc)
}
