package textgen

import "context"

// Generator produces a single text completion from a system prompt and a
// user prompt. Implementations live under pkg/ai/textgen/tg*.
type Generator interface {
	Generate(ctx context.Context, req Request, opts ...Option) (string, error)
}

// Request carries the prompts for one generation call.
type Request struct {
	System string
	Prompt string
}

// Options control model selection and sampling.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Option configures generation options.
type Option func(*Options)

// DefaultOptions returns the baseline options shared by all providers.
func DefaultOptions() *Options {
	return &Options{
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}
