package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 2048

// AnthropicClient uses the Messages API. It has no JSON response mode, so
// the prompt's output template is what keeps the answer parseable.
type AnthropicClient struct {
	client anthropic.Client
}

func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	// The candidate walk is the only retry layer.
	opts := []aoption.RequestOption{
		aoption.WithAPIKey(strings.TrimSpace(apiKey)),
		aoption.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

func (c *AnthropicClient) SourceName() string {
	return "Anthropic"
}

func (c *AnthropicClient) Generate(ctx context.Context, model string, req Request) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(strings.TrimSpace(model)),
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", err
	}

	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok && strings.TrimSpace(variant.Text) != "" {
			return variant.Text, nil
		}
	}
	return "", errors.New("no text block in response")
}
