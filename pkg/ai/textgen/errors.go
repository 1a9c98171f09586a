package textgen

import (
	"net/http"

	"github.com/robypag/scentsmith/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("TEXTGEN")

	ErrMissingAPIKey = errorRegistry.Register(
		"MISSING_API_KEY",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Provider API key is missing",
	)

	ErrEmptyPrompt = errorRegistry.Register(
		"EMPTY_PROMPT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Prompt must not be empty",
	)

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Text generation request failed",
	)

	ErrEmptyCompletion = errorRegistry.Register(
		"EMPTY_COMPLETION",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Provider returned an empty completion",
	)
)

// Errors exposes the package registry to provider implementations.
func Errors() *errx.Registry { return errorRegistry }
