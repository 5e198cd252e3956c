// Package anthropic provides a text-only model capability backed by the
// official anthropic-sdk-go. Video sources require a provider with a file
// API and are rejected here.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultModel = "claude-haiku-4-5-20251001"

// maxTokens bounds the analysis response; payloads with many
// recommendations still fit comfortably.
const maxTokens = 8192

// systemPrompt constrains responses to bare JSON, mirroring the JSON
// response format the pipeline expects from every model provider.
const systemPrompt = "You are a travel recommendation extraction engine. " +
	"Respond with a single RFC8259 compliant JSON object and nothing else."

// Client defines the Anthropic operations used by the pipeline.
type Client interface {
	AnalyzeVideo(ctx context.Context, path, prompt string) (string, error)
	AnalyzeText(ctx context.Context, prompt string) (string, error)
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model ID.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		if model != "" {
			c.model = model
		}
	}
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		model: defaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AnalyzeText performs a one-shot analysis call.
func (c *sdkClient) AnalyzeText(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", eris.New("anthropic: empty response")
	}

	zap.L().Debug("anthropic: analysis complete",
		zap.String("model", c.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return text, nil
}

// AnalyzeVideo is not supported by this provider.
func (c *sdkClient) AnalyzeVideo(ctx context.Context, path, prompt string) (string, error) {
	return "", eris.New("anthropic: video analysis not supported, use the gemini provider")
}
