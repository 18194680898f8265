// Package verifier double-checks detector results with an AI vision model,
// either through the hosted verification endpoint or by calling the model
// directly.
package verifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
)

type verifyRequest struct {
	ImageBase64     string `json:"image_base64"`
	Landmarks       string `json:"landmarks"`
	PredictedLetter string `json:"predicted_letter"`
}

type verifyResponse struct {
	Success         bool    `json:"success"`
	Letter          string  `json:"letter,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	AgreedWithModel bool    `json:"agreed_with_model,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Endpoint calls a hosted verification function over HTTP.
type Endpoint struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewEndpoint creates an Endpoint client. apiKey is sent as a bearer token
// when non-empty.
func NewEndpoint(url, apiKey string, timeout time.Duration) *Endpoint {
	return &Endpoint{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Verify implements pipeline.Verifier. The endpoint reports its own failures
// as {success:false, error}; those come back as a failed result with a nil
// error.
func (e *Endpoint) Verify(ctx context.Context, in model.VerificationRequest) (model.VerificationResult, error) {
	payload, err := json.Marshal(verifyRequest{
		ImageBase64:     base64.StdEncoding.EncodeToString(in.Image),
		Landmarks:       in.Landmarks,
		PredictedLetter: string(in.Predicted),
	})
	if err != nil {
		return model.VerificationResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return model.VerificationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("verify request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return model.VerificationResult{}, fmt.Errorf("verify request failed: %s", resp.Status)
		}
		return model.VerificationResult{}, fmt.Errorf("decode verify response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Success = false
		if out.Error == "" {
			out.Error = resp.Status
		}
	}
	return model.VerificationResult{
		Success:    out.Success,
		Letter:     model.Symbol(out.Letter),
		Confidence: out.Confidence,
		Agreed:     out.AgreedWithModel,
		Error:      out.Error,
	}, nil
}
