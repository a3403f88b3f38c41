package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Image is one decoded upload passed to the model alongside the prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is one logical multimodal request: the prompt plus zero or more images.
type Request struct {
	Prompt string
	Images []Image
}

// Client abstracts an inference provider.
// Implementations must be safe for concurrent use.
type Client interface {
	// Generate performs a single call against model and returns the raw
	// text of the first candidate answer. The caller asks for JSON; the
	// client does not parse it.
	Generate(ctx context.Context, model string, req Request) (string, error)
	// SourceName returns a short provider label for logs (e.g. "Gemini").
	SourceName() string
}

// candidates holds the ordered fallback lists, most capable first.
var candidates = map[string][]string{
	"gemini":    {"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"},
	"openai":    {"gpt-4o", "gpt-4o-mini"},
	"anthropic": {"claude-sonnet-4-5", "claude-3-5-haiku-latest"},
}

// Candidates returns a copy of the default model list for provider.
func Candidates(provider string) []string {
	list := candidates[strings.ToLower(strings.TrimSpace(provider))]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// NewClient builds the client for provider. baseURL is optional and only
// used for tests and self-hosted gateways.
func NewClient(provider, apiKey, baseURL string, timeout time.Duration) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing API key for provider %q", provider)
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		return NewGeminiClient(apiKey, baseURL, timeout), nil
	case "openai":
		return NewOpenAIClient(apiKey, baseURL), nil
	case "anthropic":
		return NewAnthropicClient(apiKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
