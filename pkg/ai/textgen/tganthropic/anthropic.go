package tganthropic

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/robypag/scentsmith/pkg/ai/textgen"
)

// Provider implements textgen.Generator on the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
	apiKey string
}

// New creates an Anthropic text generation provider. An empty apiKey
// falls back to the ANTHROPIC_API_KEY environment variable.
func New(apiKey string, opts ...option.RequestOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(options...)

	return &Provider{
		client: client,
		apiKey: apiKey,
	}
}

func defaultOptions() *textgen.Options {
	options := textgen.DefaultOptions()
	options.Model = "claude-sonnet-4-20250514"
	return options
}

// Generate implements textgen.Generator.
func (p *Provider) Generate(ctx context.Context, req textgen.Request, opts ...textgen.Option) (string, error) {
	if p.apiKey == "" {
		return "", textgen.Errors().New(textgen.ErrMissingAPIKey)
	}
	if req.Prompt == "" {
		return "", textgen.Errors().New(textgen.ErrEmptyPrompt)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	maxTokens := int64(1024)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}
	if options.Temperature != 0 {
		params.Temperature = anthropic.Float(float64(options.Temperature))
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", textgen.Errors().NewWithCause(textgen.ErrAPIRequest, err).
			WithDetail("model", options.Model)
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return "", textgen.Errors().New(textgen.ErrEmptyCompletion).
			WithDetail("model", options.Model)
	}

	return content, nil
}
