package attestation

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	DecodeResponse() (map[string]interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetAttestationID() string
	SetAttestationID(id string)
	GetAttestationIDs() []string
	GetLastAttestation() map[string]interface{}
	SetLastAttestation(body map[string]interface{})
}

// RegisterSteps registers attestation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &attestationSteps{tc: tc}

	ctx.Step(`^I create a "([^"]*)" attestation for subject "([^"]*)"$`, steps.createAttestation)
	ctx.Step(`^I create a payment attestation for subject "([^"]*)" with amount "([^"]*)"$`, steps.createPaymentAttestation)
	ctx.Step(`^the attestation should be signed by "([^"]*)"$`, steps.attestationSignedBy)
	ctx.Step(`^I fetch the attestation$`, steps.fetchAttestation)
	ctx.Step(`^I verify the returned attestation$`, steps.verifyReturnedAttestation)
	ctx.Step(`^I verify the returned attestation with claim "([^"]*)" changed to "([^"]*)"$`, steps.verifyTamperedAttestation)
	ctx.Step(`^I request the merkle root for the created attestations$`, steps.merkleRootForCreated)
	ctx.Step(`^I list attestations for subject "([^"]*)"$`, steps.listBySubject)
	ctx.Step(`^the attestation list should have (\d+) entries$`, steps.listShouldHaveEntries)
}

type attestationSteps struct {
	tc TestContext
}

func (s *attestationSteps) createAttestation(ctx context.Context, eventType, subjectID string) error {
	body := map[string]interface{}{
		"type":       eventType,
		"subject_id": subjectID,
		"claims":     defaultClaims(eventType),
	}
	if err := s.tc.POST("/v1/attestations", body); err != nil {
		return err
	}
	return s.captureAttestation()
}

func (s *attestationSteps) createPaymentAttestation(ctx context.Context, subjectID, amount string) error {
	body := map[string]interface{}{
		"type":       "PAYMENT",
		"subject_id": subjectID,
		"claims": map[string]interface{}{
			"amount":       amount,
			"currency":     "EUR",
			"payer_id":     subjectID,
			"recipient_id": "merchant-001",
			"timestamp":    "2026-01-15T10:00:00Z",
		},
	}
	if err := s.tc.POST("/v1/attestations", body); err != nil {
		return err
	}
	return s.captureAttestation()
}

func (s *attestationSteps) captureAttestation() error {
	if s.tc.GetLastResponseStatus() != 201 {
		// Leave the response in place so assertion steps can inspect it.
		return nil
	}
	data, err := s.tc.DecodeResponse()
	if err != nil {
		return err
	}
	attestationID, ok := data["attestation_id"].(string)
	if !ok {
		return fmt.Errorf("attestation_id missing from response: %s", string(s.tc.GetLastResponseBody()))
	}
	s.tc.SetAttestationID(attestationID)
	s.tc.SetLastAttestation(data)
	return nil
}

func (s *attestationSteps) attestationSignedBy(ctx context.Context, issuerID string) error {
	att := s.tc.GetLastAttestation()
	if att == nil {
		return fmt.Errorf("no attestation captured")
	}
	if att["issuer_id"] != issuerID {
		return fmt.Errorf("expected issuer %s but got %v", issuerID, att["issuer_id"])
	}
	signature, _ := att["signature"].(string)
	if signature == "" {
		return fmt.Errorf("attestation has no signature")
	}
	return nil
}

func (s *attestationSteps) fetchAttestation(ctx context.Context) error {
	return s.tc.GET("/v1/attestations/" + s.tc.GetAttestationID())
}

func (s *attestationSteps) verifyReturnedAttestation(ctx context.Context) error {
	att := s.tc.GetLastAttestation()
	if att == nil {
		return fmt.Errorf("no attestation captured")
	}
	return s.tc.POST("/v1/attestations/verify", map[string]interface{}{
		"attestation": att,
	})
}

func (s *attestationSteps) verifyTamperedAttestation(ctx context.Context, claim, value string) error {
	att := s.tc.GetLastAttestation()
	if att == nil {
		return fmt.Errorf("no attestation captured")
	}

	tampered := make(map[string]interface{}, len(att))
	for k, v := range att {
		tampered[k] = v
	}
	claims := make(map[string]interface{})
	if original, ok := att["claims"].(map[string]interface{}); ok {
		for k, v := range original {
			claims[k] = v
		}
	}
	claims[claim] = value
	tampered["claims"] = claims

	return s.tc.POST("/v1/attestations/verify", map[string]interface{}{
		"attestation": tampered,
	})
}

func (s *attestationSteps) merkleRootForCreated(ctx context.Context) error {
	ids := s.tc.GetAttestationIDs()
	if len(ids) == 0 {
		return fmt.Errorf("no attestations created in this scenario")
	}
	return s.tc.POST("/v1/attestations/merkle-root", map[string]interface{}{
		"attestation_ids": ids,
	})
}

func (s *attestationSteps) listBySubject(ctx context.Context, subjectID string) error {
	return s.tc.GET("/v1/subjects/" + subjectID + "/attestations")
}

func (s *attestationSteps) listShouldHaveEntries(ctx context.Context, count int) error {
	data, err := s.tc.DecodeResponse()
	if err != nil {
		return err
	}
	attestations, ok := data["attestations"].([]interface{})
	if !ok {
		return fmt.Errorf("attestations missing from response: %s", strings.TrimSpace(string(s.tc.GetLastResponseBody())))
	}
	if len(attestations) != count {
		return fmt.Errorf("expected %d attestations but got %d", count, len(attestations))
	}
	return nil
}

func defaultClaims(eventType string) map[string]interface{} {
	switch eventType {
	case "PAYMENT":
		return map[string]interface{}{
			"amount":       "250.00",
			"currency":     "EUR",
			"payer_id":     "user-001",
			"recipient_id": "merchant-001",
			"timestamp":    "2026-01-15T10:00:00Z",
		}
	case "DELIVERY":
		return map[string]interface{}{
			"order_id":     "order-001",
			"carrier":      "dhl",
			"delivered_at": "2026-01-16T14:30:00Z",
			"recipient_id": "user-001",
		}
	case "RECEIPT":
		return map[string]interface{}{
			"payment_id":  "pay-001",
			"amount":      "250.00",
			"currency":    "EUR",
			"received_at": "2026-01-15T10:01:00Z",
		}
	default:
		return map[string]interface{}{}
	}
}
