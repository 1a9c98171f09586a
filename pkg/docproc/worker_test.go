package docproc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/robypag/scentsmith/pkg/docproc"
	"github.com/robypag/scentsmith/pkg/docs"
	"github.com/robypag/scentsmith/pkg/jobx"
	"github.com/robypag/scentsmith/pkg/logx"
	"github.com/robypag/scentsmith/pkg/ai/textgen"
	"github.com/robypag/scentsmith/pkg/progress"
)

// --- fakes ---

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req textgen.Request, opts ...textgen.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeStore struct {
	mu         sync.Mutex
	statuses   []docs.Status
	summary    string
	metadata   map[string]any
	chunks     []docs.Chunk
	enrichErr  error
	statusErr  error
	replaceErr error

	// guard enforces the same transition rules as the SQL store,
	// starting from current.
	guard   bool
	current docs.Status
}

func (f *fakeStore) transition(to docs.Status) error {
	if f.guard && !docs.CanTransition(f.current, to) {
		return fmt.Errorf("illegal transition %s to %s", f.current, to)
	}
	f.current = to
	f.statuses = append(f.statuses, to)
	return nil
}

func (f *fakeStore) Create(ctx context.Context, doc *docs.Document) error { return nil }

func (f *fakeStore) Get(ctx context.Context, id string) (*docs.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) SaveEnrichment(ctx context.Context, id string, summary string, metadata map[string]any) error {
	if f.enrichErr != nil {
		return f.enrichErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summary = summary
	f.metadata = metadata
	return f.transition(docs.StatusProcessing)
}

func (f *fakeStore) SetStatus(ctx context.Context, id string, to docs.Status) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transition(to)
}

func (f *fakeStore) ReplaceChunks(ctx context.Context, documentID string, kind string, chunks []docs.Chunk) (string, error) {
	if f.replaceErr != nil {
		return "", f.replaceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = chunks
	return "resource-1", nil
}

func (f *fakeStore) finalStatus() docs.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ""
	}
	return f.statuses[len(f.statuses)-1]
}

type fakeEmbedder struct {
	err error
	// failures bounds how many calls fail before the provider recovers.
	// Zero means every call fails while err is set.
	failures int
	calls    int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	f.calls++
	if f.err != nil && (f.failures == 0 || f.calls <= f.failures) {
		return nil, f.err
	}
	vectors := make([][]float32, len(documents))
	for i := range documents {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []progress.Event
	err    error
}

func (f *fakeBroadcaster) Publish(ctx context.Context, userID string, event progress.Event) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return 1, nil
}

func (f *fakeBroadcaster) snapshot() []progress.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]progress.Event, len(f.events))
	copy(out, f.events)
	return out
}

type fakeFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFS() *fakeFS { return &fakeFS{files: make(map[string][]byte)} }

func (f *fakeFS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[p]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (f *fakeFS) ReadFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	data, err := f.ReadFile(ctx, p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeFS) Exists(ctx context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[p]
	return ok, nil
}

func (f *fakeFS) WriteFile(ctx context.Context, p string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[p] = data
	return nil
}

func (f *fakeFS) WriteFileStream(ctx context.Context, p string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return f.WriteFile(ctx, p, data)
}

func (f *fakeFS) DeleteFile(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, p)
	return nil
}

func (f *fakeFS) Join(elem ...string) string { return path.Join(elem...) }

func (f *fakeFS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// --- helpers ---

func newTestWorker(store *fakeStore, bc *fakeBroadcaster, fs *fakeFS) *docproc.Worker {
	return docproc.NewWorker(
		store,
		&fakeGenerator{response: `{"title":"Fougère draft","language":"en","documentType":"formula","topics":["fougère"]}`},
		&fakeEmbedder{},
		bc,
		fs,
		docproc.NewChunker(50, 10),
		docproc.Options{},
		logx.GetDefaultLogger(),
	)
}

func textJob(t *testing.T, mimeType string) *jobx.JobInfo {
	t.Helper()
	raw, err := json.Marshal(docproc.Payload{
		UserID:      "user-1",
		DocumentID:  "doc-1",
		FileName:    "formula.txt",
		FileContent: []byte("Lavender 12%\n\nBergamot 8%\n\nCoumarin 4%"),
		MimeType:    mimeType,
	})
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	return &jobx.JobInfo{
		ID:       "job-1",
		Category: string(jobx.CategoryDocumentProcessing),
		UserID:   "user-1",
		Payload:  raw,
	}
}

// --- tests ---

func TestPipelinePlainTextSuccess(t *testing.T) {
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	fs := newFakeFS()
	w := newTestWorker(store, bc, fs)

	if err := w.Handle(context.Background(), textJob(t, "text/plain")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	events := bc.snapshot()
	wantSteps := []progress.Step{
		progress.StepStarted,
		progress.StepTextExtraction,
		progress.StepSummarization,
		progress.StepMetadataExtraction,
		progress.StepDatabaseUpdate,
		progress.StepChunking,
		progress.StepEmbeddingStorage,
		progress.StepCompleted,
	}
	wantPercents := []int{0, 10, 30, 40, 50, 70, 90, 100}

	if len(events) != len(wantSteps) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantSteps), len(events), events)
	}
	for i, ev := range events {
		if ev.Step != wantSteps[i] {
			t.Fatalf("event %d: expected step %q, got %q", i, wantSteps[i], ev.Step)
		}
		if ev.Percentage != wantPercents[i] {
			t.Fatalf("event %d: expected %d%%, got %d%%", i, wantPercents[i], ev.Percentage)
		}
		if ev.JobID != "job-1" {
			t.Fatalf("event %d: expected job-1, got %q", i, ev.JobID)
		}
	}

	if status := store.finalStatus(); status != docs.StatusReady {
		t.Fatalf("expected document ready, got %q", status)
	}
	if store.summary == "" {
		t.Fatal("expected a persisted summary")
	}
	if store.metadata["title"] != "Fougère draft" {
		t.Fatalf("expected metadata title, got %+v", store.metadata)
	}
	if len(store.chunks) == 0 {
		t.Fatal("expected persisted chunks")
	}
	for i, chunk := range store.chunks {
		if len(chunk.Embedding) != 3 {
			t.Fatalf("chunk %d missing embedding", i)
		}
	}
	if fs.count() != 0 {
		t.Fatal("scratch file was not released")
	}
}

func TestPipelineProgressNonDecreasing(t *testing.T) {
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	w := newTestWorker(store, bc, newFakeFS())

	if err := w.Handle(context.Background(), textJob(t, "text/plain")); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	last := -1
	for i, ev := range bc.snapshot() {
		if ev.Percentage < last {
			t.Fatalf("event %d: percentage decreased from %d to %d", i, last, ev.Percentage)
		}
		last = ev.Percentage
	}
}

func TestPipelineUnsupportedMimeFailsTerminally(t *testing.T) {
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	fs := newFakeFS()
	w := newTestWorker(store, bc, fs)

	err := w.Handle(context.Background(), textJob(t, "application/zip"))
	if err == nil {
		t.Fatal("expected pipeline failure for unsupported MIME")
	}
	if !jobx.IsTerminal(err) {
		t.Fatal("unsupported MIME must fail terminally, not retry")
	}

	events := bc.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected started + terminal failure, got %d events: %+v", len(events), events)
	}
	final := events[len(events)-1]
	if !final.Failed() {
		t.Fatalf("expected terminal failed event, got %+v", final)
	}
	if progress.NewMessage(final).Status != progress.StatusFailed {
		t.Fatal("terminal event must derive a failed status")
	}

	if status := store.finalStatus(); status != docs.StatusFailed {
		t.Fatalf("expected document failed, got %q", status)
	}
	if len(store.chunks) != 0 {
		t.Fatal("no chunks may be written for a failed job")
	}
	if fs.count() != 0 {
		t.Fatal("scratch files must be released on failure too")
	}
}

func TestPipelineEmbeddingFailureFailsDocument(t *testing.T) {
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	w := docproc.NewWorker(
		store,
		&fakeGenerator{response: `{"title":"x"}`},
		&fakeEmbedder{err: errors.New("provider down")},
		bc,
		newFakeFS(),
		docproc.NewChunker(50, 10),
		docproc.Options{},
		logx.GetDefaultLogger(),
	)

	err := w.Handle(context.Background(), textJob(t, "text/plain"))
	if err == nil {
		t.Fatal("expected pipeline failure when embedding provider fails")
	}
	if jobx.IsTerminal(err) {
		t.Fatal("transient provider failure must stay retryable")
	}
	if status := store.finalStatus(); status != docs.StatusFailed {
		t.Fatalf("expected document failed, got %q", status)
	}

	events := bc.snapshot()
	final := events[len(events)-1]
	if !final.Failed() {
		t.Fatalf("expected terminal failed event, got %+v", final)
	}
	// No events may follow the failure.
	for i, ev := range events[:len(events)-1] {
		if ev.Failed() {
			t.Fatalf("unexpected failed event at position %d", i)
		}
	}
}

func TestPipelineRetryAfterTransientFailure(t *testing.T) {
	store := &fakeStore{guard: true, current: docs.StatusPending}
	bc := &fakeBroadcaster{}
	w := docproc.NewWorker(
		store,
		&fakeGenerator{response: `{"title":"x"}`},
		&fakeEmbedder{err: errors.New("provider down"), failures: 1},
		bc,
		newFakeFS(),
		docproc.NewChunker(50, 10),
		docproc.Options{},
		logx.GetDefaultLogger(),
	)

	job := textJob(t, "text/plain")
	job.Attempts = 1

	err := w.Handle(context.Background(), job)
	if err == nil {
		t.Fatal("expected first attempt to fail")
	}
	if jobx.IsTerminal(err) {
		t.Fatal("transient provider failure must stay retryable")
	}
	if status := store.finalStatus(); status != docs.StatusFailed {
		t.Fatalf("expected document failed after attempt 1, got %q", status)
	}

	// The broker retries with backoff; the second attempt must re-enter
	// the pipeline from the top and complete.
	job.Attempts = 2
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("retry attempt failed: %v", err)
	}
	if status := store.finalStatus(); status != docs.StatusReady {
		t.Fatalf("expected document ready after retry, got %q", status)
	}
	if len(store.chunks) == 0 {
		t.Fatal("expected chunks persisted by the retry attempt")
	}
}

func TestPipelinePublishFailureDoesNotFailJob(t *testing.T) {
	store := &fakeStore{}
	bc := &fakeBroadcaster{err: errors.New("broker unreachable")}
	w := newTestWorker(store, bc, newFakeFS())

	if err := w.Handle(context.Background(), textJob(t, "text/plain")); err != nil {
		t.Fatalf("publish failures must never fail the pipeline: %v", err)
	}
	if status := store.finalStatus(); status != docs.StatusReady {
		t.Fatalf("expected document ready, got %q", status)
	}
}

func TestPipelineMalformedPayloadIsTerminal(t *testing.T) {
	w := newTestWorker(&fakeStore{}, &fakeBroadcaster{}, newFakeFS())

	job := &jobx.JobInfo{ID: "job-1", Payload: json.RawMessage(`{"userId":""}`)}
	err := w.Handle(context.Background(), job)
	if err == nil {
		t.Fatal("expected error for incomplete payload")
	}
	if !jobx.IsTerminal(err) {
		t.Fatal("incomplete payload must be terminal")
	}
}
