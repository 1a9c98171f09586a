package jobx

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/robypag/scentsmith/pkg/errx"
)

// Defaults are the enqueue settings the manager applies when the caller
// does not override them.
type Defaults struct {
	MaxAttempts   int
	Backoff       BackoffPolicy
	KeepCompleted int
	KeepFailed    int
}

// DefaultDefaults returns the stock enqueue defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		MaxAttempts:   3,
		Backoff:       DefaultBackoff(),
		KeepCompleted: 100,
		KeepFailed:    500,
	}
}

// handle is the per-category queue state: the compiled payload schema.
// Handles are created lazily on first use and memoized for the lifetime
// of the manager.
type handle struct {
	category Category
	schema   *jsonschema.Schema
}

// Manager is the typed façade for submitting jobs and reading their
// status. It is constructed once at process start and passed explicitly
// to every call site; there is no package-level instance.
type Manager struct {
	queue    Queue
	defaults Defaults

	mu      sync.Mutex
	handles map[Category]*handle
}

// NewManager creates a manager over the given broker.
func NewManager(queue Queue, defaults Defaults) *Manager {
	if defaults.MaxAttempts <= 0 {
		defaults = DefaultDefaults()
	}
	return &Manager{
		queue:    queue,
		defaults: defaults,
		handles:  make(map[Category]*handle),
	}
}

// handleFor returns the memoized queue handle for the category, creating
// it (and compiling its payload schema) on first use.
func (m *Manager) handleFor(category Category) (*handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[category]; ok {
		return h, nil
	}

	raw, ok := categorySchemas[category]
	if !ok {
		return nil, jobxErrors.New(ErrUnknownCategory).WithDetail("category", string(category))
	}

	compiler := jsonschema.NewCompiler()
	resource := string(category) + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(raw)); err != nil {
		return nil, errx.Wrap(err, "failed to register payload schema", errx.TypeInternal)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, errx.Wrap(err, "failed to compile payload schema", errx.TypeInternal)
	}

	h := &handle{category: category, schema: schema}
	m.handles[category] = h
	return h, nil
}

// Enqueue validates the payload against the category schema, applies
// defaults for any options the caller omitted and submits the job.
// Broker errors propagate to the caller.
func (m *Manager) Enqueue(ctx context.Context, category Category, payload any, opts ...EnqueueOption) (string, error) {
	h, err := m.handleFor(category)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", jobxErrors.NewWithCause(ErrInvalidPayload, err).WithDetail("category", string(category))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", jobxErrors.NewWithCause(ErrInvalidPayload, err).WithDetail("category", string(category))
	}
	if err := h.schema.Validate(decoded); err != nil {
		return "", jobxErrors.NewWithCause(ErrInvalidPayload, err).WithDetail("category", string(category))
	}

	options := EnqueueOptions{
		Priority:    PriorityDefault,
		MaxAttempts: m.defaults.MaxAttempts,
	}
	for _, o := range opts {
		o(&options)
	}
	if !options.Priority.Valid() {
		options.Priority = PriorityDefault
	}

	backoff := m.defaults.Backoff
	if options.Backoff != nil {
		backoff = *options.Backoff
	}

	job := Job{
		Category:      string(category),
		UserID:        userIDFromPayload(raw),
		Payload:       raw,
		Priority:      options.Priority,
		MaxAttempts:   options.MaxAttempts,
		Backoff:       backoff,
		KeepCompleted: m.defaults.KeepCompleted,
		KeepFailed:    m.defaults.KeepFailed,
	}

	if options.Delay > 0 {
		return m.queue.EnqueueDelayed(ctx, job, options.Delay)
	}
	return m.queue.Enqueue(ctx, job)
}

// Status returns the job snapshot, or nil when the job is unknown.
func (m *Manager) Status(ctx context.Context, category Category, jobID string) (*JobInfo, error) {
	info, err := m.queue.GetJob(ctx, jobID)
	if err != nil {
		var e *errx.Error
		if errx.As(err, &e) && e.Type == errx.TypeNotFound {
			return nil, nil
		}
		return nil, err
	}
	if info != nil && category != "" && info.Category != string(category) {
		return nil, nil
	}
	return info, nil
}

// JobsForUser lists the user's jobs, newest first. Unknown users get an
// empty slice, never an error.
func (m *Manager) JobsForUser(ctx context.Context, userID string) ([]JobInfo, error) {
	jobs, err := m.queue.JobsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []JobInfo{}
	}
	return jobs, nil
}

// userIDFromPayload pulls the owner id out of an already-validated
// payload for the broker's per-user index.
func userIDFromPayload(raw json.RawMessage) string {
	var p struct {
		UserID string `json:"userId"`
	}
	_ = json.Unmarshal(raw, &p)
	return p.UserID
}
