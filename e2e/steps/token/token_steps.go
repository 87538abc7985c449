package token

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	DecodeResponse() (map[string]interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetTokenID() string
	SetTokenID(id string)
	GetLastToken() map[string]interface{}
	SetLastToken(body map[string]interface{})
}

// RegisterSteps registers soulbound token step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &tokenSteps{tc: tc}

	ctx.Step(`^I issue a token for recipient "([^"]*)" with badge "([^"]*)"$`, steps.issueToken)
	ctx.Step(`^I fetch the token$`, steps.fetchToken)
	ctx.Step(`^I revoke the token with reason "([^"]*)"$`, steps.revokeToken)
	ctx.Step(`^I fetch the revocation details$`, steps.fetchRevocationDetails)
	ctx.Step(`^I verify the returned token$`, steps.verifyReturnedToken)
	ctx.Step(`^I list tokens for recipient "([^"]*)"$`, steps.listByRecipient)
	ctx.Step(`^the token list should have (\d+) entries$`, steps.listShouldHaveEntries)
}

type tokenSteps struct {
	tc TestContext
}

func (s *tokenSteps) issueToken(ctx context.Context, recipientID, badge string) error {
	body := map[string]interface{}{
		"recipient_id": recipientID,
		"metadata": map[string]interface{}{
			"badge": badge,
			"tier":  "gold",
		},
	}
	if err := s.tc.POST("/v1/tokens", body); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	data, err := s.tc.DecodeResponse()
	if err != nil {
		return err
	}
	tokenID, ok := data["token_id"].(string)
	if !ok {
		return fmt.Errorf("token_id missing from response: %s", string(s.tc.GetLastResponseBody()))
	}
	s.tc.SetTokenID(tokenID)
	s.tc.SetLastToken(data)
	return nil
}

func (s *tokenSteps) fetchToken(ctx context.Context) error {
	return s.tc.GET("/v1/tokens/" + s.tc.GetTokenID())
}

func (s *tokenSteps) revokeToken(ctx context.Context, reason string) error {
	return s.tc.POST("/v1/tokens/"+s.tc.GetTokenID()+"/revoke", map[string]interface{}{
		"reason": reason,
	})
}

func (s *tokenSteps) fetchRevocationDetails(ctx context.Context) error {
	return s.tc.GET("/v1/tokens/" + s.tc.GetTokenID() + "/revocation")
}

func (s *tokenSteps) verifyReturnedToken(ctx context.Context) error {
	token := s.tc.GetLastToken()
	if token == nil {
		return fmt.Errorf("no token captured")
	}
	return s.tc.POST("/v1/tokens/verify", map[string]interface{}{
		"token": token,
	})
}

func (s *tokenSteps) listByRecipient(ctx context.Context, recipientID string) error {
	return s.tc.GET("/v1/recipients/" + recipientID + "/tokens")
}

func (s *tokenSteps) listShouldHaveEntries(ctx context.Context, count int) error {
	data, err := s.tc.DecodeResponse()
	if err != nil {
		return err
	}
	tokens, ok := data["tokens"].([]interface{})
	if !ok {
		return fmt.Errorf("tokens missing from response: %s", string(s.tc.GetLastResponseBody()))
	}
	if len(tokens) != count {
		return fmt.Errorf("expected %d tokens but got %d", count, len(tokens))
	}
	return nil
}
