package credential

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
	GetCredentialID() string
	SetCredentialID(id string)
	GetCredentialIDs() []string
	GetLastCredential() map[string]interface{}
	SetLastCredential(body map[string]interface{})
}

// RegisterSteps registers credential step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &credentialSteps{tc: tc}

	ctx.Step(`^I issue a "([^"]*)" credential for subject "([^"]*)"$`, steps.issueCredential)
	ctx.Step(`^I issue a "([^"]*)" credential for subject "([^"]*)" valid for (\d+) days$`, steps.issueCredentialWithValidity)
	ctx.Step(`^the credential holder should be "([^"]*)"$`, steps.credentialHolderShouldBe)
	ctx.Step(`^I fetch the credential$`, steps.fetchCredential)
	ctx.Step(`^I fetch the credential in W3C format$`, steps.fetchCredentialW3C)
	ctx.Step(`^I verify the returned credential$`, steps.verifyReturnedCredential)
	ctx.Step(`^I verify the returned credential with subject field "([^"]*)" changed to "([^"]*)"$`, steps.verifyTamperedCredential)
	ctx.Step(`^I create a presentation for holder "([^"]*)" with challenge "([^"]*)"$`, steps.createPresentation)
	ctx.Step(`^I list credentials for holder "([^"]*)"$`, steps.listByHolder)
	ctx.Step(`^the credential list should have (\d+) entries$`, steps.listShouldHaveEntries)
}

type credentialSteps struct {
	tc TestContext
}

func (s *credentialSteps) issueCredential(ctx context.Context, credentialType, subjectID string) error {
	return s.issue(credentialType, subjectID, nil)
}

func (s *credentialSteps) issueCredentialWithValidity(ctx context.Context, credentialType, subjectID string, days int) error {
	return s.issue(credentialType, subjectID, &days)
}

func (s *credentialSteps) issue(credentialType, subjectID string, validityDays *int) error {
	body := map[string]interface{}{
		"type":               credentialType,
		"subject_id":         subjectID,
		"credential_subject": defaultSubject(credentialType),
	}
	if validityDays != nil {
		body["validity_days"] = *validityDays
	}
	if err := s.tc.POST("/v1/credentials", body); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	data, err := s.tc.DecodeResponse()
	if err != nil {
		return err
	}
	credentialID, ok := data["credential_id"].(string)
	if !ok {
		return fmt.Errorf("credential_id missing from response: %s", string(s.tc.GetLastResponseBody()))
	}
	s.tc.SetCredentialID(credentialID)
	s.tc.SetLastCredential(data)
	return nil
}

func (s *credentialSteps) credentialHolderShouldBe(ctx context.Context, holder string) error {
	cred := s.tc.GetLastCredential()
	if cred == nil {
		return fmt.Errorf("no credential captured")
	}
	if cred["holder"] != holder {
		return fmt.Errorf("expected holder %s but got %v", holder, cred["holder"])
	}
	return nil
}

func (s *credentialSteps) fetchCredential(ctx context.Context) error {
	return s.tc.GET("/v1/credentials/" + s.tc.GetCredentialID())
}

func (s *credentialSteps) fetchCredentialW3C(ctx context.Context) error {
	return s.tc.GET("/v1/credentials/" + s.tc.GetCredentialID() + "/w3c")
}

func (s *credentialSteps) verifyReturnedCredential(ctx context.Context) error {
	cred := s.tc.GetLastCredential()
	if cred == nil {
		return fmt.Errorf("no credential captured")
	}
	return s.tc.POST("/v1/credentials/verify", map[string]interface{}{
		"credential": cred,
	})
}

func (s *credentialSteps) verifyTamperedCredential(ctx context.Context, field, value string) error {
	cred := s.tc.GetLastCredential()
	if cred == nil {
		return fmt.Errorf("no credential captured")
	}

	tampered := make(map[string]interface{}, len(cred))
	for k, v := range cred {
		tampered[k] = v
	}
	subject := make(map[string]interface{})
	if original, ok := cred["credential_subject"].(map[string]interface{}); ok {
		for k, v := range original {
			subject[k] = v
		}
	}
	subject[field] = value
	tampered["credential_subject"] = subject

	return s.tc.POST("/v1/credentials/verify", map[string]interface{}{
		"credential": tampered,
	})
}

func (s *credentialSteps) createPresentation(ctx context.Context, holderID, challenge string) error {
	ids := s.tc.GetCredentialIDs()
	if len(ids) == 0 {
		return fmt.Errorf("no credentials issued in this scenario")
	}
	return s.tc.POST("/v1/presentations", map[string]interface{}{
		"credential_ids": ids,
		"holder_id":      holderID,
		"challenge":      challenge,
	})
}

func (s *credentialSteps) listByHolder(ctx context.Context, subjectID string) error {
	return s.tc.GET("/v1/holders/" + subjectID + "/credentials")
}

func (s *credentialSteps) listShouldHaveEntries(ctx context.Context, count int) error {
	data, err := s.tc.DecodeResponse()
	if err != nil {
		return err
	}
	credentials, ok := data["credentials"].([]interface{})
	if !ok {
		return fmt.Errorf("credentials missing from response: %s", string(s.tc.GetLastResponseBody()))
	}
	if len(credentials) != count {
		return fmt.Errorf("expected %d credentials but got %d", count, len(credentials))
	}
	return nil
}

func defaultSubject(credentialType string) map[string]interface{} {
	switch credentialType {
	case "KYC_VERIFICATION":
		return map[string]interface{}{
			"verification_level": "full",
			"verified_at":        "2026-01-10T09:00:00Z",
		}
	case "ACCREDITATION":
		return map[string]interface{}{
			"accreditation_type": "investor",
			"granted_at":         "2026-01-05T08:00:00Z",
		}
	case "PROFESSIONAL":
		return map[string]interface{}{
			"profession": "auditor",
			"license_no": "AUD-4471",
		}
	case "PAYMENT_HISTORY":
		return map[string]interface{}{
			"payments_completed": 12,
			"total_volume":       "4800.00",
			"currency":           "EUR",
		}
	default:
		return map[string]interface{}{}
	}
}
