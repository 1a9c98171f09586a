package docproc

import (
	"net/http"

	"github.com/robypag/scentsmith/pkg/errx"
)

var (
	procErrors = errx.NewRegistry("DOCPROC")

	ErrInvalidPayload = procErrors.Register(
		"INVALID_PAYLOAD",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Job payload is malformed or incomplete",
	)

	ErrUnsupportedMime = procErrors.Register(
		"UNSUPPORTED_MIME_TYPE",
		errx.TypeValidation,
		http.StatusUnsupportedMediaType,
		"No extractor exists for this MIME type",
	)

	ErrExtraction = procErrors.Register(
		"EXTRACTION_FAILED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Text extraction failed",
	)

	ErrEmptyDocument = procErrors.Register(
		"EMPTY_DOCUMENT",
		errx.TypeValidation,
		http.StatusUnprocessableEntity,
		"Document contains no extractable text",
	)

	ErrMetadataParse = procErrors.Register(
		"METADATA_PARSE_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Generated metadata is not valid JSON",
	)
)
