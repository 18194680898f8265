package verifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/verte-zerg/signdrill/internal/model"
)

// visionConfidence is reported for every letter the vision model returns;
// the model gives no score of its own.
const visionConfidence = 0.95

// DefaultVisionModel is used when no model is configured.
const DefaultVisionModel = "gpt-4o"

// Vision asks an OpenAI vision model which letter an image shows.
type Vision struct {
	client oai.Client
	model  string
}

type visionConfig struct {
	baseURL string
	timeout time.Duration
}

// VisionOption configures a Vision verifier.
type VisionOption func(*visionConfig)

// WithBaseURL overrides the OpenAI API base URL.
func WithBaseURL(url string) VisionOption {
	return func(c *visionConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) VisionOption {
	return func(c *visionConfig) {
		c.timeout = d
	}
}

// NewVision creates a Vision verifier.
func NewVision(apiKey, modelName string, opts ...VisionOption) (*Vision, error) {
	if apiKey == "" {
		return nil, errors.New("verifier: apiKey must not be empty")
	}
	if modelName == "" {
		modelName = DefaultVisionModel
	}
	cfg := &visionConfig{}
	for _, o := range opts {
		o(cfg)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	return &Vision{client: oai.NewClient(reqOpts...), model: modelName}, nil
}

// Verify implements pipeline.Verifier. Model or parsing failures come back
// as a failed result with a nil error, matching the hosted endpoint.
func (v *Vision) Verify(ctx context.Context, in model.VerificationRequest) (model.VerificationResult, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(v.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.TextContentPart(visionPrompt(in.Predicted, in.Landmarks)),
				oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(in.Image),
				}),
			}),
		},
		MaxCompletionTokens: param.NewOpt(int64(10)),
		Temperature:         param.NewOpt(0.3),
	}
	resp, err := v.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.VerificationResult{Error: err.Error()}, nil
	}
	if len(resp.Choices) == 0 {
		return model.VerificationResult{Error: "empty choices in response"}, nil
	}
	answer := resp.Choices[0].Message.Content
	letter, ok := ExtractLetter(answer)
	if !ok {
		return model.VerificationResult{Error: fmt.Sprintf("invalid response from model: %q", answer)}, nil
	}
	return model.VerificationResult{
		Success:    true,
		Letter:     letter,
		Confidence: visionConfidence,
		Agreed:     letter == in.Predicted,
	}, nil
}

// ExtractLetter returns the first A-Z character of the upper-cased reply.
func ExtractLetter(answer string) (model.Symbol, bool) {
	s := strings.ToUpper(strings.TrimSpace(answer))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return model.Symbol(string(r)), true
		}
	}
	return "", false
}

func visionPrompt(predicted model.Symbol, landmarks string) string {
	return fmt.Sprintf(`You are an expert in American Sign Language (ASL). Analyze this image of a hand sign.

Our computer vision model detected: Letter %s
Hand landmark positions: %s

Your task: Identify which ASL letter (A-Z) is being signed in this image.

Respond ONLY with a single letter (A-Z). Be confident and specific.`, predicted, landmarks)
}
