package jobx

import (
	"context"
	"sync"
	"time"

	"github.com/robypag/scentsmith/pkg/logx"
)

// HandlerFunc processes one claimed job. A nil return completes the job;
// an error routes it through the broker's retry policy, except errors
// wrapped with Terminal which fail immediately.
type HandlerFunc func(ctx context.Context, job *JobInfo) error

// Enqueuer submits jobs to the broker.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error)
}

// StatusReader reads job state from the broker.
type StatusReader interface {
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
	JobsForUser(ctx context.Context, userID string) ([]JobInfo, error)
}

// Processor provides the broker operations the worker loop needs.
type Processor interface {
	// Dequeue atomically claims the next job from the given categories,
	// blocking up to timeout. Returns (nil, nil) when nothing is ready.
	Dequeue(ctx context.Context, categories []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, jobID string) error
	// Fail records a failed attempt. It returns true when the job still
	// has retry budget and the error was not terminal.
	Fail(ctx context.Context, jobID string, errMsg string, terminal bool) (retry bool, err error)
	// Retry schedules a failed job to run again after delay.
	Retry(ctx context.Context, jobID string, delay time.Duration) error
	// PromoteDelayed moves due delayed jobs back to their ready lanes.
	PromoteDelayed(ctx context.Context, categories []string) error
}

// Queue combines all broker operations.
type Queue interface {
	Enqueuer
	StatusReader
	Processor
}

// Client runs registered handlers against claimed jobs with a bounded
// worker pool. One Client instance consumes one set of categories.
type Client struct {
	queue    Queue
	opts     WorkerOptions
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

// NewClient creates a worker runtime over the given broker.
func NewClient(queue Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{
		queue:    queue,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for a job category.
func (c *Client) Register(category string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[category] = handler
}

// Start begins processing jobs and blocks until ctx is cancelled, then
// drains in-flight jobs up to the shutdown timeout.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logx.Infof("jobx: starting %d workers on categories %v", c.opts.Concurrency, c.opts.Categories)

	var wg sync.WaitGroup

	// Scheduler goroutine promotes delayed/retried jobs to the ready lanes.
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.schedulerLoop(ctx)
	}()

	for i := range c.opts.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("jobx: shutting down workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("jobx: all workers stopped")
	case <-time.After(c.opts.ShutdownTimeout):
		logx.Warn("jobx: shutdown timed out, some jobs may not have completed")
	}

	return nil
}

func (c *Client) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.queue.PromoteDelayed(ctx, c.opts.Categories); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("jobx: failed to promote delayed jobs")
			}
		}
	}
}

func (c *Client) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := c.queue.Dequeue(ctx, c.opts.Categories, c.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("jobx: worker %d dequeue error", id)
			time.Sleep(c.opts.PollInterval)
			continue
		}
		if job == nil {
			continue
		}

		c.processJob(ctx, job)
	}
}

func (c *Client) processJob(ctx context.Context, job *JobInfo) {
	c.mu.RLock()
	handler, ok := c.handlers[job.Category]
	c.mu.RUnlock()

	if !ok {
		logx.Warnf("jobx: no handler for category %q (id=%s)", job.Category, job.ID)
		_, _ = c.queue.Fail(ctx, job.ID, "no handler registered for job category", true)
		return
	}

	if err := handler(ctx, job); err != nil {
		terminal := IsTerminal(err)
		logx.WithError(err).
			WithField("terminal", terminal).
			Warnf("jobx: job %s (category=%s, attempt=%d) failed", job.ID, job.Category, job.Attempts)

		shouldRetry, failErr := c.queue.Fail(ctx, job.ID, err.Error(), terminal)
		if failErr != nil {
			logx.WithError(failErr).Errorf("jobx: failed to mark job %s as failed", job.ID)
			return
		}

		if shouldRetry {
			delay := job.Backoff.Next(job.Attempts)
			if retryErr := c.queue.Retry(ctx, job.ID, delay); retryErr != nil {
				logx.WithError(retryErr).Errorf("jobx: failed to schedule retry of job %s", job.ID)
			}
		}
		return
	}

	if err := c.queue.Complete(ctx, job.ID); err != nil {
		logx.WithError(err).Errorf("jobx: failed to complete job %s", job.ID)
	}
}
