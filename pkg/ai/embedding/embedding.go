package embedding

import (
	"context"
	"net/http"

	"github.com/robypag/scentsmith/pkg/errx"
)

// Embedder turns text into dense vectors. Implementations live under
// pkg/ai/embedding/emb*.
type Embedder interface {
	EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error)
	Dimensions() int
}

var (
	errorRegistry = errx.NewRegistry("EMBEDDING")

	ErrMissingAPIKey = errorRegistry.Register(
		"MISSING_API_KEY",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Provider API key is missing",
	)

	ErrEmptyInput = errorRegistry.Register(
		"EMPTY_INPUT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Embedding input must not be empty",
	)

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Embedding request failed",
	)

	ErrCountMismatch = errorRegistry.Register(
		"COUNT_MISMATCH",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Provider returned a different number of embeddings than inputs",
	)
)

// Errors exposes the package registry to provider implementations.
func Errors() *errx.Registry { return errorRegistry }
