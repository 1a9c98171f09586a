package tgopenai

import (
	"context"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/robypag/scentsmith/pkg/ai/textgen"
)

// Provider implements textgen.Generator on the OpenAI chat completions API.
type Provider struct {
	client openai.Client
	apiKey string
}

// New creates an OpenAI text generation provider. An empty apiKey falls
// back to the OPENAI_API_KEY environment variable.
func New(apiKey string, opts ...option.RequestOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(options...)

	return &Provider{
		client: client,
		apiKey: apiKey,
	}
}

func defaultOptions() *textgen.Options {
	options := textgen.DefaultOptions()
	options.Model = "gpt-4o-mini"
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

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    options.Model,
	}
	if options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != 0 {
		params.Temperature = openai.Float(float64(options.Temperature))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", textgen.Errors().NewWithCause(textgen.ErrAPIRequest, err).
			WithDetail("model", options.Model)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", textgen.Errors().New(textgen.ErrEmptyCompletion).
			WithDetail("model", options.Model)
	}

	return completion.Choices[0].Message.Content, nil
}
