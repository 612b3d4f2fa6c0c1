package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"convertify/internal/engine"
	"convertify/internal/formats"
	"convertify/internal/logging"
	"convertify/internal/metrics"
	"convertify/internal/notifications"
	"convertify/internal/queue"
	"convertify/internal/services"
)

// Engine is the conversion capability the runner drives. *engine.Handle
// satisfies it.
type Engine interface {
	EnsureLoaded(ctx context.Context) error
	Convert(ctx context.Context, req engine.Request) ([]byte, error)
}

// Runner converts queued jobs.
type Runner struct {
	store    *queue.Store
	engine   Engine
	notifier notifications.Service
	logger   *slog.Logger

	runs *semaphore.Weighted
}

// New constructs a Runner. A nil notifier disables notifications.
func New(store *queue.Store, eng Engine, notifier notifications.Service, logger *slog.Logger) *Runner {
	return &Runner{
		store:    store,
		engine:   eng,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "runner"),
		runs:     semaphore.NewWeighted(1),
	}
}

// RunAll snapshots the Pending jobs and returns a sequence that processes them
// in queue order as it is iterated. Jobs added afterwards belong to a later
// run. Only one sequence executes at a time; a second one waits for the first
// to finish. Cancelling ctx stops the sequence before the next job without
// interrupting a conversion already in flight.
func (r *Runner) RunAll(ctx context.Context) (iter.Seq[Result], error) {
	if r == nil || r.store == nil || r.engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, "run", "init", "runner not configured", nil)
	}
	jobs, err := r.store.List(ctx, queue.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("snapshot queue: %w", err)
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}

	return func(yield func(Result) bool) {
		if err := r.runs.Acquire(ctx, 1); err != nil {
			return
		}
		defer r.runs.Release(1)

		runID := uuid.NewString()
		runCtx := services.WithRunID(ctx, runID)
		logger := logging.WithContext(runCtx, r.logger)
		started := time.Now()
		logger.Info("run started",
			logging.String(logging.FieldEventType, "run_start"),
			logging.Int("jobs", len(ids)),
		)

		state := &run{Runner: r}
		defer func() {
			r.finishRun(runCtx, logger, state.summary, time.Since(started))
		}()

		for i, id := range ids {
			if runCtx.Err() != nil {
				logger.Info("run cancelled", logging.Int("remaining", len(ids)-i))
				return
			}
			result, ok := state.process(runCtx, id)
			if !ok {
				continue
			}
			state.summary.add(result)
			r.record(runCtx, result)
			if !yield(result) {
				return
			}
		}
	}, nil
}

// run is the state of one RunAll iteration.
type run struct {
	*Runner
	summary Summary
	// loadErr is the engine initialization failure of this run; later jobs
	// fail with it instead of retrying the load.
	loadErr error
}

// process handles one job. It reports false when the job produced no result:
// it left the queue, is no longer Pending, or was removed mid-conversion.
func (r *run) process(ctx context.Context, id string) (Result, bool) {
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, r.logger)

	job, err := r.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, queue.ErrJobNotFound) {
			logger.Warn("job lookup failed; job passed over", logging.Error(err))
		}
		return Result{}, false
	}
	if job.Status != queue.StatusPending {
		logger.Debug("job no longer pending", logging.String("status", string(job.Status)))
		return Result{}, false
	}

	result := Result{
		JobID:      job.ID,
		SourceName: job.SourceName,
		MediaClass: job.MediaClass,
		Format:     job.TargetFormat,
	}
	if !job.HasTarget() {
		result.Outcome = OutcomeSkipped
		result.SkipReason = SkipNoFormatSelected
		return result, true
	}
	if !formats.IsAllowed(job.MediaClass, job.TargetFormat) {
		result.Outcome = OutcomeSkipped
		result.SkipReason = SkipUnsupportedFormat
		return result, true
	}

	if err := r.ensureLoaded(ctx); err != nil {
		if ctx.Err() != nil {
			return Result{}, false
		}
		logger.Error("engine unavailable; job left pending",
			logging.String(logging.FieldEventType, "engine_init_failure"),
			logging.String("source_file", job.SourceName),
			logging.Error(err),
			logging.ErrorKind(err),
		)
		result.Outcome = OutcomeFailed
		result.Err = err
		return result, true
	}

	if _, err := r.store.MarkRunning(ctx, job.ID); err != nil {
		if !errors.Is(err, queue.ErrJobNotFound) {
			logger.Warn("job could not start; job passed over", logging.Error(err))
		}
		return Result{}, false
	}
	source, err := r.store.Source(ctx, job.ID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			return r.discard(logger, job)
		}
		return r.fail(ctx, logger, job, result, err)
	}

	req := engine.Request{
		Input:      source,
		InputName:  inputName(job),
		OutputName: outputName(job),
		Class:      job.MediaClass,
		Format:     job.TargetFormat,
		Label:      job.SourceName,
	}
	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_start"),
		logging.String("source_file", job.SourceName),
		logging.String(logging.FieldFormat, job.TargetFormat.String()),
	)
	output, err := r.engine.Convert(context.WithoutCancel(ctx), req)
	if err != nil {
		return r.fail(ctx, logger, job, result, err)
	}

	artifact := queue.Artifact{
		Name:     queue.OutputName(job.SourceName, job.TargetFormat),
		MIMEType: formats.MIMEType(job.TargetFormat),
		Size:     int64(len(output)),
		Data:     output,
	}
	if err := r.store.MarkSucceeded(context.WithoutCancel(ctx), job.ID, artifact); err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			return r.discard(logger, job)
		}
		return r.fail(ctx, logger, job, result, err)
	}
	result.Outcome = OutcomeSucceeded
	result.Artifact = &artifact
	logger.Info("conversion succeeded",
		logging.String(logging.FieldEventType, "conversion_complete"),
		logging.String("artifact", artifact.Name),
		logging.Int64("artifact_bytes", artifact.Size),
	)
	return result, true
}

func (r *run) ensureLoaded(ctx context.Context) error {
	if r.loadErr != nil {
		return r.loadErr
	}
	err := r.engine.EnsureLoaded(ctx)
	if err != nil && ctx.Err() == nil {
		r.loadErr = err
	}
	return err
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, result Result, cause error) (Result, bool) {
	detail := strings.TrimSpace(cause.Error())
	if err := r.store.MarkFailed(context.WithoutCancel(ctx), job.ID, detail); err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			return r.discard(logger, job)
		}
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	logger.Error("conversion failed",
		logging.String(logging.FieldEventType, "conversion_failure"),
		logging.String("source_file", job.SourceName),
		logging.Error(cause),
		logging.ErrorKind(cause),
	)
	result.Outcome = OutcomeFailed
	result.Err = cause
	return result, true
}

func (r *Runner) discard(logger *slog.Logger, job *queue.Job) (Result, bool) {
	logger.Info("job removed during conversion; result discarded",
		logging.String(logging.FieldEventType, "result_discarded"),
		logging.String("source_file", job.SourceName),
	)
	return Result{}, false
}

func (r *Runner) record(ctx context.Context, result Result) {
	metrics.RecordJobResult(string(result.Outcome), result.MediaClass.String(), string(result.SkipReason))

	var (
		event   notifications.Event
		payload = notifications.Payload{"file": result.SourceName}
	)
	switch result.Outcome {
	case OutcomeSucceeded:
		event = notifications.EventJobSucceeded
		payload["format"] = result.Format.String()
	case OutcomeSkipped:
		event = notifications.EventJobSkipped
		payload["reason"] = result.SkipReason.Description()
	case OutcomeFailed:
		event = notifications.EventJobFailed
		payload["error"] = result.Err
	default:
		return
	}
	r.publish(ctx, event, payload)
}

func (r *Runner) finishRun(ctx context.Context, logger *slog.Logger, summary Summary, elapsed time.Duration) {
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("elapsed", elapsed),
	)
	if summary.Total() == 0 {
		return
	}
	r.publish(context.WithoutCancel(ctx), notifications.EventRunCompleted, notifications.Payload{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
		"duration":  elapsed,
	})
}

func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("run cancelled, could not send notification")
			return
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ntfy topic and network access"),
		)
	}
}

var safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// inputName keeps the source extension so the engine can pick a demuxer from it.
func inputName(job *queue.Job) string {
	ext := strings.ToLower(filepath.Ext(job.SourceName))
	if !safeExtension.MatchString(ext) {
		ext = ""
	}
	return "input-" + job.ID + ext
}

func outputName(job *queue.Job) string {
	return "output-" + job.ID + job.TargetFormat.Extension()
}
