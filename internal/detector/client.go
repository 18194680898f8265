// Package detector is the HTTP client for the hand-sign detection service.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
)

const (
	detectPath = "/detect-hand"
	healthPath = "/health"
)

// Client talks to the detection service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Success    bool    `json:"success"`
	Sign       string  `json:"sign"`
	Confidence float64 `json:"confidence"`
	Landmarks  string  `json:"landmarks,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Detect uploads a JPEG image and returns the detector's result. Transport
// failures and non-2xx responses return a failed result together with the
// error.
func (c *Client) Detect(ctx context.Context, image []byte) (model.DetectionResult, error) {
	body, contentType, err := multipartImage(image)
	if err != nil {
		return model.DetectionResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, body)
	if err != nil {
		return model.DetectionResult{}, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.DetectionResult{}, fmt.Errorf("detect request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.DetectionResult{}, fmt.Errorf("detect request failed: %s", resp.Status)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.DetectionResult{}, fmt.Errorf("decode detect response: %w", err)
	}
	return model.DetectionResult{
		Success:    out.Success,
		Label:      out.Sign,
		Confidence: out.Confidence,
		Landmarks:  out.Landmarks,
		Error:      out.Error,
	}, nil
}

// Health describes the detector's health endpoint.
type Health struct {
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	NumClasses  int      `json:"num_classes"`
	Classes     []string `json:"classes"`
}

// Health queries the service health endpoint.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("health request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Health{}, fmt.Errorf("health request failed: %s", resp.Status)
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decode health response: %w", err)
	}
	return h, nil
}

func multipartImage(image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="hand.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
