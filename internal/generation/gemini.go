package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for chat replies.
const DefaultModel = "gemini-1.5-flash"

// GeminiGenerator produces chat replies with Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator bound to apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate sends prompt as a single user turn and returns the reply text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Name returns the generator name.
func (g *GeminiGenerator) Name() string {
	return "gemini:" + g.model
}

// classify maps an upstream failure to a Kind. Structured API errors are
// checked first, then the message text.
func classify(err error) Kind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if k, ok := kindForStatus(apiErr.Code); ok {
			return k
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		if k, ok := kindForStatus(apiErrPtr.Code); ok {
			return k
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"):
		return KindUpstreamAuth
	case strings.Contains(msg, "quota"):
		return KindUpstreamQuota
	default:
		return KindUnknown
	}
}

func kindForStatus(code int) (Kind, bool) {
	switch code {
	case 401, 403:
		return KindUpstreamAuth, true
	case 429:
		return KindUpstreamQuota, true
	}
	return KindUnknown, false
}
