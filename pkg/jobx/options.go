package jobx

import "time"

// WorkerOptions configures the worker runtime.
type WorkerOptions struct {
	Categories      []string
	Concurrency     int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	DequeueTimeout  time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Categories:      []string{string(CategoryDocumentProcessing)},
		Concurrency:     2,
		PollInterval:    time.Second,
		ShutdownTimeout: 30 * time.Second,
		DequeueTimeout:  5 * time.Second,
	}
}

// WorkerOption is a functional option for the worker runtime.
type WorkerOption func(*WorkerOptions)

// WithCategories sets the job categories the runtime consumes.
func WithCategories(categories ...string) WorkerOption {
	return func(o *WorkerOptions) { o.Categories = categories }
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets the idle wait between dequeue attempts.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.PollInterval = d }
}

// WithShutdownTimeout bounds the graceful drain on shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.ShutdownTimeout = d }
}

// WithDequeueTimeout sets the timeout of the blocking dequeue call.
func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.DequeueTimeout = d }
}

// ─── Enqueue options ─────────────────────────────────────────────────────────

// EnqueueOptions are caller overrides applied on top of manager defaults.
type EnqueueOptions struct {
	Priority    Priority
	MaxAttempts int
	Backoff     *BackoffPolicy
	Delay       time.Duration
}

// EnqueueOption is a functional option for Manager.Enqueue.
type EnqueueOption func(*EnqueueOptions)

// WithPriority overrides the default lane.
func WithPriority(p Priority) EnqueueOption {
	return func(o *EnqueueOptions) { o.Priority = p }
}

// WithMaxAttempts overrides the bounded retry attempt count.
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *EnqueueOptions) {
		if n > 0 {
			o.MaxAttempts = n
		}
	}
}

// WithBackoff overrides the retry backoff policy.
func WithBackoff(p BackoffPolicy) EnqueueOption {
	return func(o *EnqueueOptions) { o.Backoff = &p }
}

// WithDelay makes the job eligible only after the given delay.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) { o.Delay = d }
}
