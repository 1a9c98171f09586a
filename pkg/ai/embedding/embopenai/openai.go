package embopenai

import (
	"context"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/robypag/scentsmith/pkg/ai/embedding"
)

const defaultModel = "text-embedding-3-small"

// text-embedding-3-small produces 1536-dimensional vectors.
const defaultDimensions = 1536

// Provider implements embedding.Embedder on the OpenAI embeddings API.
type Provider struct {
	client     openai.Client
	apiKey     string
	model      string
	dimensions int
}

// New creates an OpenAI embedding provider. An empty apiKey falls back
// to the OPENAI_API_KEY environment variable, an empty model to
// text-embedding-3-small.
func New(apiKey, model string, opts ...option.RequestOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(options...)

	return &Provider{
		client:     client,
		apiKey:     apiKey,
		model:      model,
		dimensions: defaultDimensions,
	}
}

// Dimensions implements embedding.Embedder.
func (p *Provider) Dimensions() int { return p.dimensions }

// EmbedDocuments implements embedding.Embedder.
func (p *Provider) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, embedding.Errors().New(embedding.ErrMissingAPIKey)
	}
	if len(documents) == 0 {
		return nil, embedding.Errors().New(embedding.ErrEmptyInput)
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: documents,
		},
		Model: p.model,
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, embedding.Errors().NewWithCause(embedding.ErrAPIRequest, err).
			WithDetail("model", p.model).
			WithDetail("num_documents", len(documents))
	}

	if len(resp.Data) != len(documents) {
		return nil, embedding.Errors().New(embedding.ErrCountMismatch).
			WithDetail("expected", len(documents)).
			WithDetail("got", len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[data.Index] = vec
	}

	return vectors, nil
}
