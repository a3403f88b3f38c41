package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

// OpenAIClient uses the Responses API with JSON-object output.
type OpenAIClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	// The candidate walk is the only retry layer.
	opts := []ooption.RequestOption{
		ooption.WithAPIKey(strings.TrimSpace(apiKey)),
		ooption.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

func (c *OpenAIClient) SourceName() string {
	return "OpenAI"
}

func (c *OpenAIClient) Generate(ctx context.Context, model string, req Request) (string, error) {
	msg := make(oresponses.ResponseInputMessageContentListParam, 0, len(req.Images)+1)
	msg = append(msg, oresponses.ResponseInputContentUnionParam{
		OfInputText: &oresponses.ResponseInputTextParam{Text: req.Prompt},
	})
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		msg = append(msg, oresponses.ResponseInputContentUnionParam{
			OfInputImage: &oresponses.ResponseInputImageParam{
				Detail:   oresponses.ResponseInputImageDetailAuto,
				ImageURL: openai.String(dataURL(img)),
			},
		})
	}

	format := oshared.NewResponseFormatJSONObjectParam()
	params := oresponses.ResponseNewParams{
		Model: oshared.ResponsesModel(strings.TrimSpace(model)),
		Input: oresponses.ResponseNewParamsInputUnion{
			OfInputItemList: oresponses.ResponseInputParam{
				oresponses.ResponseInputItemParamOfMessage(msg, oresponses.EasyInputMessageRoleUser),
			},
		},
		Text: oresponses.ResponseTextConfigParam{
			Format: oresponses.ResponseFormatTextConfigUnionParam{OfJSONObject: &format},
		},
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}
	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response text")
	}
	return text, nil
}

func dataURL(img Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
