package docproc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/robypag/scentsmith/pkg/jobx"
)

const (
	mimePlainText = "text/plain"
	mimeMarkdown  = "text/markdown"
	mimePDF       = "application/pdf"
	mimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor turns a raw file into plain text.
type Extractor func(data []byte) (string, error)

// ExtractorFor selects an extractor by declared MIME type. Unsupported
// types return a terminal error so the broker fails the job on the
// first attempt instead of retrying.
func ExtractorFor(mimeType string) (Extractor, error) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.ToLower(strings.TrimSpace(base))

	switch base {
	case mimePlainText, mimeMarkdown:
		return extractPlainText, nil
	case mimePDF:
		return extractPDF, nil
	case mimeDOCX:
		return extractDOCX, nil
	}
	return nil, jobx.Terminal(procErrors.New(ErrUnsupportedMime).
		WithDetail("mime_type", mimeType))
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", procErrors.New(ErrExtraction).
			WithDetail("reason", "content is not valid UTF-8")
	}
	return string(data), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", procErrors.NewWithCause(ErrExtraction, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", procErrors.NewWithCause(ErrExtraction, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", procErrors.NewWithCause(ErrExtraction, err)
	}
	return buf.String(), nil
}

// docxBody mirrors the word/document.xml structure far enough to pull
// run text out of every paragraph.
type docxBody struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func extractDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", procErrors.NewWithCause(ErrExtraction, err)
	}

	var document io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document, err = f.Open()
			if err != nil {
				return "", procErrors.NewWithCause(ErrExtraction, err)
			}
			break
		}
	}
	if document == nil {
		return "", procErrors.New(ErrExtraction).
			WithDetail("reason", "word/document.xml missing from archive")
	}
	defer document.Close()

	raw, err := io.ReadAll(document)
	if err != nil {
		return "", procErrors.NewWithCause(ErrExtraction, err)
	}

	var body docxBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		return "", procErrors.NewWithCause(ErrExtraction, err)
	}

	var sb strings.Builder
	for _, para := range body.Body.Paragraphs {
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
