package jobx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robypag/scentsmith/pkg/jobx"
)

// fakeQueue records enqueued jobs and serves canned status reads.
type fakeQueue struct {
	enqueued    []jobx.Job
	delayed     []time.Duration
	getJob      *jobx.JobInfo
	getJobErr   error
	userJobs    []jobx.JobInfo
	userJobsErr error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	f.enqueued = append(f.enqueued, job)
	return "job-1", nil
}

func (f *fakeQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	f.enqueued = append(f.enqueued, job)
	f.delayed = append(f.delayed, delay)
	return "job-1", nil
}

func (f *fakeQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	return f.getJob, f.getJobErr
}

func (f *fakeQueue) JobsForUser(ctx context.Context, userID string) ([]jobx.JobInfo, error) {
	return f.userJobs, f.userJobsErr
}

func (f *fakeQueue) Dequeue(ctx context.Context, categories []string, timeout time.Duration) (*jobx.JobInfo, error) {
	return nil, nil
}

func (f *fakeQueue) Complete(ctx context.Context, jobID string) error { return nil }

func (f *fakeQueue) Fail(ctx context.Context, jobID string, errMsg string, terminal bool) (bool, error) {
	return false, nil
}

func (f *fakeQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error { return nil }

func (f *fakeQueue) PromoteDelayed(ctx context.Context, categories []string) error { return nil }

func validPayload() map[string]any {
	return map[string]any{
		"userId":      "user-1",
		"documentId":  "doc-1",
		"fileName":    "brief.txt",
		"mimeType":    "text/plain",
		"fileContent": "aGVsbG8=",
	}
}

func TestManagerEnqueueAppliesDefaults(t *testing.T) {
	q := &fakeQueue{}
	m := jobx.NewManager(q, jobx.DefaultDefaults())

	id, err := m.Enqueue(context.Background(), jobx.CategoryDocumentProcessing, validPayload())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("expected job-1, got %q", id)
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(q.enqueued))
	}

	job := q.enqueued[0]
	if job.UserID != "user-1" {
		t.Fatalf("expected owner user-1, got %q", job.UserID)
	}
	if job.Priority != jobx.PriorityDefault {
		t.Fatalf("expected default priority, got %q", job.Priority)
	}
	if job.MaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", job.MaxAttempts)
	}
	if job.Backoff.Kind != jobx.BackoffExponential {
		t.Fatalf("expected exponential backoff, got %q", job.Backoff.Kind)
	}
}

func TestManagerEnqueueRejectsInvalidPayload(t *testing.T) {
	q := &fakeQueue{}
	m := jobx.NewManager(q, jobx.DefaultDefaults())

	payload := validPayload()
	delete(payload, "documentId")

	if _, err := m.Enqueue(context.Background(), jobx.CategoryDocumentProcessing, payload); err == nil {
		t.Fatal("expected validation error for payload missing documentId")
	}
	if len(q.enqueued) != 0 {
		t.Fatal("invalid payload must not reach the broker")
	}
}

func TestManagerEnqueueUnknownCategory(t *testing.T) {
	m := jobx.NewManager(&fakeQueue{}, jobx.DefaultDefaults())

	if _, err := m.Enqueue(context.Background(), jobx.Category("no-such-category"), validPayload()); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestManagerEnqueueOptions(t *testing.T) {
	q := &fakeQueue{}
	m := jobx.NewManager(q, jobx.DefaultDefaults())

	_, err := m.Enqueue(context.Background(), jobx.CategoryDocumentProcessing, validPayload(),
		jobx.WithPriority(jobx.PriorityCritical),
		jobx.WithMaxAttempts(5),
		jobx.WithDelay(time.Minute),
	)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	job := q.enqueued[0]
	if job.Priority != jobx.PriorityCritical {
		t.Fatalf("expected critical priority, got %q", job.Priority)
	}
	if job.MaxAttempts != 5 {
		t.Fatalf("expected 5 max attempts, got %d", job.MaxAttempts)
	}
	if len(q.delayed) != 1 || q.delayed[0] != time.Minute {
		t.Fatalf("expected delayed enqueue of 1m, got %+v", q.delayed)
	}
}

func TestManagerStatusUnknownJobIsNil(t *testing.T) {
	m := jobx.NewManager(&fakeQueue{}, jobx.DefaultDefaults())
	info, err := m.Status(context.Background(), jobx.CategoryDocumentProcessing, "missing")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info for unknown job, got %+v", info)
	}
}

func TestManagerJobsForUserNeverNil(t *testing.T) {
	m := jobx.NewManager(&fakeQueue{}, jobx.DefaultDefaults())

	jobs, err := m.JobsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("jobs for user failed: %v", err)
	}
	if jobs == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestTerminalErrors(t *testing.T) {
	base := errors.New("unsupported")

	if jobx.IsTerminal(base) {
		t.Fatal("plain error must not be terminal")
	}
	if !jobx.IsTerminal(jobx.Terminal(base)) {
		t.Fatal("wrapped error must be terminal")
	}
	if !errors.Is(jobx.Terminal(base), base) {
		t.Fatal("terminal wrapper must unwrap to the cause")
	}
	if jobx.Terminal(nil) != nil {
		t.Fatal("Terminal(nil) must be nil")
	}
}
