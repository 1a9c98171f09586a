package docproc

import (
	"encoding/json"
	"time"

	"github.com/robypag/scentsmith/pkg/jobx"
)

// Payload is the document-processing job body. FileContent travels
// base64-encoded inside the job record.
type Payload struct {
	UserID      string    `json:"userId"`
	JobID       string    `json:"jobId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	DocumentID  string    `json:"documentId"`
	FileName    string    `json:"fileName"`
	FileContent []byte    `json:"fileContent"`
	MimeType    string    `json:"mimeType"`
}

// decodePayload parses a job body. Malformed payloads are terminal:
// retrying cannot fix them.
func decodePayload(raw json.RawMessage) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, jobx.Terminal(procErrors.NewWithCause(ErrInvalidPayload, err))
	}
	if p.UserID == "" || p.DocumentID == "" || p.MimeType == "" {
		return nil, jobx.Terminal(procErrors.New(ErrInvalidPayload))
	}
	return &p, nil
}
