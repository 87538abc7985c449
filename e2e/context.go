package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	AttestationID  string
	AttestationIDs []string
	CredentialID   string
	CredentialIDs  []string
	TokenID        string

	// Full entity bodies as returned by the API, replayed on verify calls.
	LastAttestation map[string]interface{}
	LastCredential  map[string]interface{}
	LastToken       map[string]interface{}
}

// NewTestContext creates a new test context
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &TestContext{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Reset clears all per-scenario state while keeping the HTTP client
func (tc *TestContext) Reset() {
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.AttestationID = ""
	tc.AttestationIDs = nil
	tc.CredentialID = ""
	tc.CredentialIDs = nil
	tc.TokenID = ""
	tc.LastAttestation = nil
	tc.LastCredential = nil
	tc.LastToken = nil
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), "POST", tc.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), "GET", tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}

	return value, nil
}

// DecodeResponse unmarshals the last response body into a map
func (tc *TestContext) DecodeResponse() (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return data, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}

	return false
}

// Getter methods for step package interfaces

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetAttestationID() string { return tc.AttestationID }

func (tc *TestContext) SetAttestationID(id string) {
	tc.AttestationID = id
	tc.AttestationIDs = append(tc.AttestationIDs, id)
}

func (tc *TestContext) GetAttestationIDs() []string { return tc.AttestationIDs }

func (tc *TestContext) GetCredentialID() string { return tc.CredentialID }

func (tc *TestContext) SetCredentialID(id string) {
	tc.CredentialID = id
	tc.CredentialIDs = append(tc.CredentialIDs, id)
}

func (tc *TestContext) GetCredentialIDs() []string { return tc.CredentialIDs }

func (tc *TestContext) GetTokenID() string { return tc.TokenID }

func (tc *TestContext) SetTokenID(id string) { tc.TokenID = id }

func (tc *TestContext) GetLastAttestation() map[string]interface{} { return tc.LastAttestation }

func (tc *TestContext) SetLastAttestation(body map[string]interface{}) { tc.LastAttestation = body }

func (tc *TestContext) GetLastCredential() map[string]interface{} { return tc.LastCredential }

func (tc *TestContext) SetLastCredential(body map[string]interface{}) { tc.LastCredential = body }

func (tc *TestContext) GetLastToken() map[string]interface{} { return tc.LastToken }

func (tc *TestContext) SetLastToken(body map[string]interface{}) { tc.LastToken = body }
