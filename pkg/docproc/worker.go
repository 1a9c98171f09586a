// Package docproc is the document processing worker: a jobx handler
// that runs every uploaded document through a fixed sequence of
// extraction and enrichment stages, persisting state after each one and
// narrating progress on the owner's channel.
package docproc

import (
	"context"
	"time"

	"github.com/robypag/scentsmith/pkg/ai/embedding"
	"github.com/robypag/scentsmith/pkg/ai/textgen"
	"github.com/robypag/scentsmith/pkg/docs"
	"github.com/robypag/scentsmith/pkg/fsx"
	"github.com/robypag/scentsmith/pkg/jobx"
	"github.com/robypag/scentsmith/pkg/logx"
	"github.com/robypag/scentsmith/pkg/progress"
)

const defaultPromptBudget = 12000

// Options tune the worker beyond its dependencies.
type Options struct {
	// StageTimeout bounds each stage call. A timeout is a stage failure.
	StageTimeout time.Duration

	// PromptBudget caps how much extracted text is sent to the text
	// generation provider.
	PromptBudget int
}

// Worker executes the document pipeline for one claimed job at a time.
// Concurrency across jobs comes from the jobx client's pool, not from
// the worker itself.
type Worker struct {
	store        docs.Store
	generator    textgen.Generator
	embedder     embedding.Embedder
	broadcaster  progress.Broadcaster
	fs           fsx.FileSystem
	chunker      *Chunker
	stageTimeout time.Duration
	promptBudget int
	log          *logx.Logger
}

// NewWorker wires the pipeline's dependencies.
func NewWorker(
	store docs.Store,
	generator textgen.Generator,
	embedder embedding.Embedder,
	broadcaster progress.Broadcaster,
	fs fsx.FileSystem,
	chunker *Chunker,
	opts Options,
	log *logx.Logger,
) *Worker {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 2 * time.Minute
	}
	if opts.PromptBudget <= 0 {
		opts.PromptBudget = defaultPromptBudget
	}
	return &Worker{
		store:        store,
		generator:    generator,
		embedder:     embedder,
		broadcaster:  broadcaster,
		fs:           fs,
		chunker:      chunker,
		stageTimeout: opts.StageTimeout,
		promptBudget: opts.PromptBudget,
		log:          log,
	}
}

// Handle is the jobx handler for the document-processing category.
func (w *Worker) Handle(ctx context.Context, job *jobx.JobInfo) error {
	payload, err := decodePayload(job.Payload)
	if err != nil {
		return err
	}

	log := w.log.WithFields(logx.Fields{
		"job_id":      job.ID,
		"document_id": payload.DocumentID,
	})
	log.Info("document pipeline started")

	run := &pipelineRun{payload: payload}
	w.publish(ctx, payload.UserID, w.event(job.ID, progress.StepStarted, 0, "Document queued for processing"))

	// Flip to processing up front so both terminal transitions are
	// legal later.
	if err := w.store.SetStatus(ctx, payload.DocumentID, docs.StatusProcessing); err != nil {
		w.fail(ctx, job.ID, payload, progress.StepStarted, 0, log)
		return err
	}

	lastPercent := 0
	for _, st := range w.stages() {
		stageCtx, cancel := context.WithTimeout(ctx, w.stageTimeout)
		err := st.Run(stageCtx, run)
		cancel()
		if err != nil {
			log.WithError(err).WithField("step", string(st.Step)).Error("pipeline stage failed")
			w.fail(ctx, job.ID, payload, st.Step, lastPercent, log)
			return err
		}
		lastPercent = st.Percent
		w.publish(ctx, payload.UserID, w.event(job.ID, st.Step, st.Percent, st.Message))
	}

	if err := w.store.SetStatus(ctx, payload.DocumentID, docs.StatusReady); err != nil {
		log.WithError(err).Error("could not mark document ready")
		w.fail(ctx, job.ID, payload, progress.StepEmbeddingStorage, lastPercent, log)
		return err
	}

	w.publish(ctx, payload.UserID, w.event(job.ID, progress.StepCompleted, 100, "Document ready"))
	log.Info("document pipeline completed")
	return nil
}

// fail flips the document to failed and emits the terminal progress
// event. Both are best-effort: the job error that caused the failure is
// what propagates to the broker.
func (w *Worker) fail(ctx context.Context, jobID string, payload *Payload, step progress.Step, percent int, log *logx.Entry) {
	if err := w.store.SetStatus(ctx, payload.DocumentID, docs.StatusFailed); err != nil {
		log.WithError(err).Error("could not mark document failed, record may be inconsistent")
	}

	ev := w.event(jobID, step, percent, "Document processing failed")
	ev.Metadata = map[string]any{"failed": true}
	w.publish(ctx, payload.UserID, ev)
}

func (w *Worker) event(jobID string, step progress.Step, percent int, message string) progress.Event {
	return progress.Event{
		JobID:      jobID,
		Percentage: percent,
		Message:    message,
		Step:       step,
		Timestamp:  time.Now().UTC(),
	}
}

// publish narrates progress. Broadcast failures are logged, never
// escalated: the durable record of the job lives in the broker and the
// document store.
func (w *Worker) publish(ctx context.Context, userID string, ev progress.Event) {
	if _, err := w.broadcaster.Publish(ctx, userID, ev); err != nil {
		w.log.WithError(err).WithField("job_id", ev.JobID).Warn("progress publish failed")
	}
}
