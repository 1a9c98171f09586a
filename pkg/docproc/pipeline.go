package docproc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/robypag/scentsmith/pkg/ai/textgen"
	"github.com/robypag/scentsmith/pkg/docs"
	"github.com/robypag/scentsmith/pkg/jobx"
	"github.com/robypag/scentsmith/pkg/progress"
)

// pipelineRun carries the intermediate state of one job through the
// stage sequence.
type pipelineRun struct {
	payload  *Payload
	text     string
	summary  string
	metadata map[string]any
	chunks   []docs.Chunk
}

// stage is one entry of the ordered pipeline table. Stage order and
// percentages are data, so consumers can render a deterministic
// progress bar regardless of stage duration.
type stage struct {
	Step    progress.Step
	Percent int
	Message string
	Run     func(ctx context.Context, run *pipelineRun) error
}

func (w *Worker) stages() []stage {
	return []stage{
		{progress.StepTextExtraction, 10, "Extracted document text", w.stageExtract},
		{progress.StepSummarization, 30, "Generated summary", w.stageSummarize},
		{progress.StepMetadataExtraction, 40, "Extracted metadata", w.stageMetadata},
		{progress.StepDatabaseUpdate, 50, "Saved document enrichment", w.stageSaveEnrichment},
		{progress.StepChunking, 70, "Split content into chunks", w.stageChunk},
		{progress.StepEmbeddingStorage, 90, "Stored chunk embeddings", w.stageEmbedAndStore},
	}
}

func (w *Worker) stageExtract(ctx context.Context, run *pipelineRun) error {
	// Resolve the extractor before any side effect so unsupported MIME
	// types fail without touching storage.
	extract, err := ExtractorFor(run.payload.MimeType)
	if err != nil {
		return err
	}

	scratch := w.fs.Join("scratch", run.payload.DocumentID+"-"+run.payload.FileName)
	if err := w.fs.WriteFile(ctx, scratch, run.payload.FileContent); err != nil {
		return procErrors.NewWithCause(ErrExtraction, err)
	}
	defer func() {
		if err := w.fs.DeleteFile(ctx, scratch); err != nil {
			w.log.WithError(err).WithField("path", scratch).Warn("scratch file not released")
		}
	}()

	data, err := w.fs.ReadFile(ctx, scratch)
	if err != nil {
		return procErrors.NewWithCause(ErrExtraction, err)
	}

	text, err := extract(data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return jobx.Terminal(procErrors.New(ErrEmptyDocument).
			WithDetail("file_name", run.payload.FileName))
	}

	run.text = text
	return nil
}

const summarySystem = "You are an archivist for a fragrance house. You write faithful, compact summaries of formula sheets, lab notes and supplier documents."

func (w *Worker) stageSummarize(ctx context.Context, run *pipelineRun) error {
	prompt := fmt.Sprintf(
		"Summarize the following document in at most 200 words. Mention notable materials, accords and concentrations if present.\n\n%s",
		clip(run.text, w.promptBudget),
	)

	summary, err := w.generator.Generate(ctx, textgen.Request{
		System: summarySystem,
		Prompt: prompt,
	})
	if err != nil {
		return err
	}

	run.summary = strings.TrimSpace(summary)
	return nil
}

const metadataSystem = "You extract structured metadata from fragrance documents. Respond with a single JSON object and nothing else."

func (w *Worker) stageMetadata(ctx context.Context, run *pipelineRun) error {
	prompt := fmt.Sprintf(
		"Extract metadata from the document below. Return a JSON object with the keys \"title\" (string), \"language\" (ISO 639-1 code), \"documentType\" (string) and \"topics\" (array of strings).\n\n%s",
		clip(run.text, w.promptBudget),
	)

	raw, err := w.generator.Generate(ctx, textgen.Request{
		System: metadataSystem,
		Prompt: prompt,
	})
	if err != nil {
		return err
	}

	metadata, err := parseJSONObject(raw)
	if err != nil {
		return err
	}

	run.metadata = metadata
	return nil
}

func (w *Worker) stageSaveEnrichment(ctx context.Context, run *pipelineRun) error {
	return w.store.SaveEnrichment(ctx, run.payload.DocumentID, run.summary, run.metadata)
}

func (w *Worker) stageChunk(ctx context.Context, run *pipelineRun) error {
	pieces := w.chunker.Split(run.text)
	chunks := make([]docs.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = docs.Chunk{Index: i, Content: content}
	}
	run.chunks = chunks
	return nil
}

func (w *Worker) stageEmbedAndStore(ctx context.Context, run *pipelineRun) error {
	texts := make([]string, len(run.chunks))
	for i, chunk := range run.chunks {
		texts[i] = chunk.Content
	}

	vectors, err := w.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	for i := range run.chunks {
		run.chunks[i].Embedding = vectors[i]
	}

	_, err = w.store.ReplaceChunks(ctx, run.payload.DocumentID, "document", run.chunks)
	return err
}

// parseJSONObject decodes a model response into a map, tolerating the
// markdown code fences some models wrap JSON in.
func parseJSONObject(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, procErrors.NewWithCause(ErrMetadataParse, err).
			WithDetail("response_prefix", clip(trimmed, 120))
	}
	return obj, nil
}

// clip truncates s to at most max bytes without splitting a UTF-8 rune.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
