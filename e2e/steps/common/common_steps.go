package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	ResponseContains(field string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the issuance service is running$`, steps.serviceIsRunning)

	// Generic request steps
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, steps.postWithEmptyBody)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be true$`, steps.responseFieldShouldBeTrue)
	ctx.Step(`^the response field "([^"]*)" should be false$`, steps.responseFieldShouldBeFalse)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	return nil
}

func (s *commonSteps) postWithEmptyBody(ctx context.Context, path string) error {
	return s.tc.POST(path, map[string]interface{}{})
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &data); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	actualValue, ok := data[field]
	if !ok {
		return fmt.Errorf("field %s not found in response", field)
	}

	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeTrue(ctx context.Context, field string) error {
	return s.responseFieldShouldBeBool(field, true)
}

func (s *commonSteps) responseFieldShouldBeFalse(ctx context.Context, field string) error {
	return s.responseFieldShouldBeBool(field, false)
}

func (s *commonSteps) responseFieldShouldBeBool(field string, expected bool) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	actual, ok := value.(bool)
	if !ok {
		return fmt.Errorf("field %s is not a boolean: %v", field, value)
	}
	if actual != expected {
		return fmt.Errorf("field %s: expected %v but got %v\nResponse: %s", field, expected, actual, strings.TrimSpace(string(s.tc.GetLastResponseBody())))
	}
	return nil
}
