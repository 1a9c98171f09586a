package jobx_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robypag/scentsmith/pkg/jobx"
)

// runtimeQueue feeds a fixed set of jobs to the worker runtime and
// records every broker call it makes.
type runtimeQueue struct {
	jobs chan *jobx.JobInfo

	mu        sync.Mutex
	completed []string
	failures  []failRecord
	retries   []time.Duration
	// allowRetry is what Fail reports for non-terminal errors.
	allowRetry bool
}

type failRecord struct {
	jobID    string
	terminal bool
}

func newRuntimeQueue(jobs ...*jobx.JobInfo) *runtimeQueue {
	q := &runtimeQueue{jobs: make(chan *jobx.JobInfo, len(jobs)), allowRetry: true}
	for _, j := range jobs {
		q.jobs <- j
	}
	return q
}

func (q *runtimeQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	return "", errors.New("not implemented")
}

func (q *runtimeQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func (q *runtimeQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	return nil, nil
}

func (q *runtimeQueue) JobsForUser(ctx context.Context, userID string) ([]jobx.JobInfo, error) {
	return nil, nil
}

func (q *runtimeQueue) Dequeue(ctx context.Context, categories []string, timeout time.Duration) (*jobx.JobInfo, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (q *runtimeQueue) Complete(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, jobID)
	return nil
}

func (q *runtimeQueue) Fail(ctx context.Context, jobID string, errMsg string, terminal bool) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures = append(q.failures, failRecord{jobID: jobID, terminal: terminal})
	return !terminal && q.allowRetry, nil
}

func (q *runtimeQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retries = append(q.retries, delay)
	return nil
}

func (q *runtimeQueue) PromoteDelayed(ctx context.Context, categories []string) error { return nil }

func (q *runtimeQueue) snapshot() (completed []string, failures []failRecord, retries []time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.completed...),
		append([]failRecord(nil), q.failures...),
		append([]time.Duration(nil), q.retries...)
}

func runtimeJob(id string) *jobx.JobInfo {
	return &jobx.JobInfo{
		ID:       id,
		Category: string(jobx.CategoryDocumentProcessing),
		Attempts: 1,
		Backoff:  jobx.BackoffPolicy{Kind: jobx.BackoffFixed, Delay: 7 * time.Second},
	}
}

func newRuntimeClient(q *runtimeQueue, concurrency int) *jobx.Client {
	return jobx.NewClient(q,
		jobx.WithCategories(string(jobx.CategoryDocumentProcessing)),
		jobx.WithConcurrency(concurrency),
		jobx.WithPollInterval(5*time.Millisecond),
		jobx.WithDequeueTimeout(5*time.Millisecond),
		jobx.WithShutdownTimeout(time.Second),
	)
}

// runClient starts the client, waits for the handlers to finish, then
// shuts the runtime down before returning.
func runClient(t *testing.T, client *jobx.Client, handled *sync.WaitGroup) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		_ = client.Start(ctx)
		close(finished)
	}()

	handled.Wait()
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("worker runtime did not shut down")
	}
}

func TestClientBoundsConcurrency(t *testing.T) {
	jobs := []*jobx.JobInfo{
		runtimeJob("job-1"), runtimeJob("job-2"), runtimeJob("job-3"),
		runtimeJob("job-4"), runtimeJob("job-5"), runtimeJob("job-6"),
	}
	q := newRuntimeQueue(jobs...)
	client := newRuntimeClient(q, 2)

	var inFlight, peak int32
	var handled sync.WaitGroup
	handled.Add(len(jobs))
	client.Register(string(jobx.CategoryDocumentProcessing), func(ctx context.Context, job *jobx.JobInfo) error {
		defer handled.Done()
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	runClient(t, client, &handled)

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Fatalf("expected at most 2 jobs in flight, saw %d", p)
	}
	completed, failures, _ := q.snapshot()
	if len(completed) != len(jobs) {
		t.Fatalf("expected %d completions, got %d", len(jobs), len(completed))
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
}

func TestClientTerminalErrorSkipsRetry(t *testing.T) {
	q := newRuntimeQueue(runtimeJob("job-1"))
	client := newRuntimeClient(q, 1)

	var handled sync.WaitGroup
	handled.Add(1)
	client.Register(string(jobx.CategoryDocumentProcessing), func(ctx context.Context, job *jobx.JobInfo) error {
		defer handled.Done()
		return jobx.Terminal(errors.New("unsupported input"))
	})

	runClient(t, client, &handled)

	completed, failures, retries := q.snapshot()
	if len(completed) != 0 {
		t.Fatalf("terminal error must not complete the job: %v", completed)
	}
	if len(failures) != 1 || !failures[0].terminal {
		t.Fatalf("expected one terminal Fail call, got %+v", failures)
	}
	if len(retries) != 0 {
		t.Fatalf("terminal error must never be retried, got %v", retries)
	}
}

func TestClientRetriesWithBackoffDelay(t *testing.T) {
	q := newRuntimeQueue(runtimeJob("job-1"))
	client := newRuntimeClient(q, 1)

	var handled sync.WaitGroup
	handled.Add(1)
	client.Register(string(jobx.CategoryDocumentProcessing), func(ctx context.Context, job *jobx.JobInfo) error {
		defer handled.Done()
		return errors.New("provider down")
	})

	runClient(t, client, &handled)

	_, failures, retries := q.snapshot()
	if len(failures) != 1 || failures[0].terminal {
		t.Fatalf("expected one non-terminal Fail call, got %+v", failures)
	}
	if len(retries) != 1 || retries[0] != 7*time.Second {
		t.Fatalf("expected one retry after 7s, got %v", retries)
	}
}

func TestClientUnregisteredCategoryFailsTerminally(t *testing.T) {
	q := newRuntimeQueue(&jobx.JobInfo{ID: "job-1", Category: "unknown-category"})
	client := jobx.NewClient(q,
		jobx.WithCategories("unknown-category"),
		jobx.WithConcurrency(1),
		jobx.WithPollInterval(5*time.Millisecond),
		jobx.WithDequeueTimeout(5*time.Millisecond),
		jobx.WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		_ = client.Start(ctx)
		close(finished)
	}()

	deadline := time.After(2 * time.Second)
	for {
		_, failures, _ := q.snapshot()
		if len(failures) == 1 {
			if !failures[0].terminal {
				t.Fatalf("missing handler must fail terminally, got %+v", failures)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("job was never failed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("worker runtime did not shut down")
	}
}
