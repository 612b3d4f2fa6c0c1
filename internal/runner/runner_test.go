package runner_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"convertify/internal/engine"
	"convertify/internal/logging"
	"convertify/internal/metrics"
	"convertify/internal/notifications"
	"convertify/internal/queue"
	"convertify/internal/runner"
	"convertify/internal/testsupport"
)

type fakeEngine struct {
	mu        sync.Mutex
	loads     int
	loaded    bool
	loadErr   error
	requests  []engine.Request
	convertFn func(req engine.Request) ([]byte, error)

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeEngine) EnsureLoaded(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return nil
	}
	f.loads++
	if f.loadErr != nil {
		return &engine.InitError{Stage: "transcoder", Err: f.loadErr}
	}
	f.loaded = true
	return nil
}

func (f *fakeEngine) Convert(_ context.Context, req engine.Request) ([]byte, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		current := f.maxActive.Load()
		if n <= current || f.maxActive.CompareAndSwap(current, n) {
			break
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.convertFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return append([]byte("converted:"), req.Input...), nil
}

func (f *fakeEngine) setLoadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *fakeEngine) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *fakeEngine) convertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *fakeNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event: event, payload: payload})
	return nil
}

func (n *fakeNotifier) eventNames() []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]notifications.Event, 0, len(n.events))
	for _, e := range n.events {
		names = append(names, e.event)
	}
	return names
}

func newRunner(t *testing.T) (*runner.Runner, *queue.Store, *fakeEngine, *fakeNotifier) {
	t.Helper()
	store := testsupport.MustOpenStore(t)
	eng := &fakeEngine{}
	notifier := &fakeNotifier{}
	return runner.New(store, eng, notifier, logging.NewNop()), store, eng, notifier
}

// verifyNoLeaks checks for leaked goroutines after the store registered by
// newRunner has been closed.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	opts := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, opts) })
}

func collect(t *testing.T, r *runner.Runner, ctx context.Context) []runner.Result {
	t.Helper()
	seq, err := r.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	var results []runner.Result
	for result := range seq {
		results = append(results, result)
	}
	return results
}

func jobStatus(t *testing.T, store *queue.Store, id string) queue.Status {
	t.Helper()
	job, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", id, err)
	}
	return job.Status
}

func TestRunAllProcessesQueueInOrder(t *testing.T) {
	r, store, eng, notifier := newRunner(t)
	ctx := context.Background()

	image := testsupport.AddJob(t, store, "photo.jpg", "image/jpeg", "png")
	audio := testsupport.AddJob(t, store, "song.wav", "audio/wav", "")
	video := testsupport.AddJob(t, store, "clip.mov", "video/quicktime", "mp4")

	skippedBefore := testutil.ToFloat64(metrics.JobResults.WithLabelValues("skipped", "audio", "no_format_selected"))

	results := collect(t, r, ctx)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %#v", len(results), results)
	}
	want := []struct {
		id      string
		outcome runner.Outcome
		reason  runner.SkipReason
	}{
		{image.ID, runner.OutcomeSucceeded, runner.SkipNone},
		{audio.ID, runner.OutcomeSkipped, runner.SkipNoFormatSelected},
		{video.ID, runner.OutcomeSucceeded, runner.SkipNone},
	}
	for i, w := range want {
		got := results[i]
		if got.JobID != w.id || got.Outcome != w.outcome || got.SkipReason != w.reason {
			t.Fatalf("result %d: expected %s/%s/%q, got %s/%s/%q", i, w.id, w.outcome, w.reason, got.JobID, got.Outcome, got.SkipReason)
		}
	}

	if status := jobStatus(t, store, audio.ID); status != queue.StatusPending {
		t.Fatalf("expected skipped job to stay pending, got %s", status)
	}
	for _, id := range []string{image.ID, video.ID} {
		if status := jobStatus(t, store, id); status != queue.StatusSucceeded {
			t.Fatalf("expected %s succeeded, got %s", id, status)
		}
	}

	artifact, err := store.Artifact(ctx, video.ID)
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}
	if artifact.Name != "clip.mp4" || artifact.MIMEType != "video/mp4" {
		t.Fatalf("unexpected artifact %#v", artifact)
	}
	if results[2].Artifact == nil || string(results[2].Artifact.Data) != "converted:source:clip.mov" {
		t.Fatalf("unexpected result artifact %#v", results[2].Artifact)
	}

	if got := eng.convertCount(); got != 2 {
		t.Fatalf("expected skipped job to bypass the engine, got %d conversions", got)
	}

	wantEvents := []notifications.Event{
		notifications.EventJobSucceeded,
		notifications.EventJobSkipped,
		notifications.EventJobSucceeded,
		notifications.EventRunCompleted,
	}
	if got := notifier.eventNames(); !slices.Equal(got, wantEvents) {
		t.Fatalf("expected events %v, got %v", wantEvents, got)
	}

	skippedAfter := testutil.ToFloat64(metrics.JobResults.WithLabelValues("skipped", "audio", "no_format_selected"))
	if skippedAfter-skippedBefore != 1 {
		t.Fatalf("expected skipped metric to increase by 1, got %v", skippedAfter-skippedBefore)
	}
}

func TestRunAllUsesDistinctWorkspaceNames(t *testing.T) {
	r, store, eng, _ := newRunner(t)
	job := testsupport.AddJob(t, store, "Holiday Clip.MP4", "video/mp4", "mp4")

	collect(t, r, context.Background())

	if len(eng.requests) != 1 {
		t.Fatalf("expected one conversion, got %d", len(eng.requests))
	}
	req := eng.requests[0]
	if req.InputName != "input-"+job.ID+".mp4" {
		t.Fatalf("unexpected input name %q", req.InputName)
	}
	if req.OutputName != "output-"+job.ID+".mp4" {
		t.Fatalf("unexpected output name %q", req.OutputName)
	}
	if req.Label != "Holiday Clip.MP4" || req.Format != "mp4" {
		t.Fatalf("unexpected request %#v", req)
	}
}

func TestRunAllEngineInitFailureLeavesJobsPending(t *testing.T) {
	r, store, eng, _ := newRunner(t)
	ctx := context.Background()
	first := testsupport.AddJob(t, store, "a.png", "image/png", "jpeg")
	second := testsupport.AddJob(t, store, "b.png", "image/png", "webp")

	eng.setLoadErr(errors.New("ffmpeg missing"))
	results := collect(t, r, ctx)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		var initErr *engine.InitError
		if result.Outcome != runner.OutcomeFailed || !errors.As(result.Err, &initErr) {
			t.Fatalf("expected init failure, got %#v", result)
		}
	}
	if got := eng.loadCount(); got != 1 {
		t.Fatalf("expected one load attempt per run, got %d", got)
	}
	for _, id := range []string{first.ID, second.ID} {
		if status := jobStatus(t, store, id); status != queue.StatusPending {
			t.Fatalf("expected %s pending after init failure, got %s", id, status)
		}
	}

	eng.setLoadErr(nil)
	results = collect(t, r, ctx)
	if len(results) != 2 || results[0].Outcome != runner.OutcomeSucceeded || results[1].Outcome != runner.OutcomeSucceeded {
		t.Fatalf("expected retry run to succeed, got %#v", results)
	}
}

func TestRunAllConversionFailureDoesNotStopRun(t *testing.T) {
	r, store, eng, notifier := newRunner(t)
	ctx := context.Background()
	broken := testsupport.AddJob(t, store, "broken.wav", "audio/wav", "mp3")
	fine := testsupport.AddJob(t, store, "fine.wav", "audio/wav", "flac")

	eng.convertFn = func(req engine.Request) ([]byte, error) {
		if req.Label == "broken.wav" {
			return nil, &engine.ConversionError{Kind: engine.ExecFailed, File: req.Label, Err: errors.New("invalid data found")}
		}
		return []byte("flac"), nil
	}

	results := collect(t, r, ctx)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != runner.OutcomeFailed || results[1].Outcome != runner.OutcomeSucceeded {
		t.Fatalf("unexpected outcomes %s, %s", results[0].Outcome, results[1].Outcome)
	}
	var convErr *engine.ConversionError
	if !errors.As(results[0].Err, &convErr) || convErr.Kind != engine.ExecFailed {
		t.Fatalf("expected ExecFailed, got %v", results[0].Err)
	}

	job, err := store.Get(ctx, broken.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != queue.StatusFailed || !strings.Contains(job.ErrorDetail, "invalid data found") {
		t.Fatalf("expected failure detail, got %#v", job)
	}
	if status := jobStatus(t, store, fine.ID); status != queue.StatusSucceeded {
		t.Fatalf("expected second job succeeded, got %s", status)
	}

	notifier.mu.Lock()
	failure := notifier.events[0]
	notifier.mu.Unlock()
	if failure.event != notifications.EventJobFailed || failure.payload["file"] != "broken.wav" {
		t.Fatalf("unexpected failure notification %#v", failure)
	}
}

func TestRunAllDiscardsResultOfRemovedJob(t *testing.T) {
	verifyNoLeaks(t)

	r, store, eng, _ := newRunner(t)
	ctx := context.Background()
	doomed := testsupport.AddJob(t, store, "doomed.gif", "image/gif", "png")
	next := testsupport.AddJob(t, store, "next.gif", "image/gif", "webp")

	started := make(chan struct{})
	release := make(chan struct{})
	eng.convertFn = func(req engine.Request) ([]byte, error) {
		if req.Label == "doomed.gif" {
			close(started)
			<-release
		}
		return []byte("out"), nil
	}

	seq, err := r.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	done := make(chan []runner.Result)
	go func() {
		var results []runner.Result
		for result := range seq {
			results = append(results, result)
		}
		done <- results
	}()

	<-started
	if status := jobStatus(t, store, doomed.ID); status != queue.StatusRunning {
		t.Fatalf("expected running during conversion, got %s", status)
	}
	removed, err := store.Remove(ctx, doomed.ID)
	if err != nil || !removed {
		t.Fatalf("Remove failed: %v %v", removed, err)
	}
	close(release)

	var results []runner.Result
	select {
	case results = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	if len(results) != 1 || results[0].JobID != next.ID {
		t.Fatalf("expected only the remaining job's result, got %#v", results)
	}
	if _, err := store.Get(ctx, doomed.ID); !errors.Is(err, queue.ErrJobNotFound) {
		t.Fatalf("expected removed job to stay absent, got %v", err)
	}
}

func TestRunAllSnapshotsPendingJobs(t *testing.T) {
	r, store, _, _ := newRunner(t)
	ctx := context.Background()
	first := testsupport.AddJob(t, store, "a.mp3", "audio/mpeg", "wav")

	seq, err := r.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	late := testsupport.AddJob(t, store, "b.mp3", "audio/mpeg", "wav")

	var ids []string
	for result := range seq {
		ids = append(ids, result.JobID)
	}
	if !slices.Equal(ids, []string{first.ID}) {
		t.Fatalf("expected only the snapshot job, got %v", ids)
	}
	if status := jobStatus(t, store, late.ID); status != queue.StatusPending {
		t.Fatalf("expected late job untouched, got %s", status)
	}
}

func TestRunAllPassesOverRemovedJobs(t *testing.T) {
	r, store, eng, _ := newRunner(t)
	ctx := context.Background()
	gone := testsupport.AddJob(t, store, "a.png", "image/png", "gif")
	kept := testsupport.AddJob(t, store, "b.png", "image/png", "gif")

	seq, err := r.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if _, err := store.Remove(ctx, gone.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var ids []string
	for result := range seq {
		ids = append(ids, result.JobID)
	}
	if !slices.Equal(ids, []string{kept.ID}) {
		t.Fatalf("expected only remaining job, got %v", ids)
	}
	if got := eng.convertCount(); got != 1 {
		t.Fatalf("expected one conversion, got %d", got)
	}
}

func TestRunAllStopsWhenConsumerBreaks(t *testing.T) {
	r, store, _, notifier := newRunner(t)
	ctx := context.Background()
	first := testsupport.AddJob(t, store, "a.png", "image/png", "bmp")
	second := testsupport.AddJob(t, store, "b.png", "image/png", "bmp")

	seq, err := r.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	for result := range seq {
		if result.JobID != first.ID {
			t.Fatalf("unexpected first result %s", result.JobID)
		}
		break
	}
	if status := jobStatus(t, store, second.ID); status != queue.StatusPending {
		t.Fatalf("expected second job untouched, got %s", status)
	}
	events := notifier.eventNames()
	if len(events) == 0 || events[len(events)-1] != notifications.EventRunCompleted {
		t.Fatalf("expected summary after early stop, got %v", events)
	}

	// The run slot must be released for the next run.
	results := collect(t, r, ctx)
	if len(results) != 1 || results[0].JobID != second.ID {
		t.Fatalf("expected follow-up run to process the second job, got %#v", results)
	}
}

func TestRunAllStopsOnCancellation(t *testing.T) {
	r, store, eng, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := testsupport.AddJob(t, store, "a.ogg", "audio/ogg", "mp3")
	second := testsupport.AddJob(t, store, "b.ogg", "audio/ogg", "mp3")

	eng.convertFn = func(req engine.Request) ([]byte, error) {
		cancel()
		return []byte("mp3"), nil
	}

	results := collect(t, r, ctx)
	if len(results) != 1 || results[0].JobID != first.ID || results[0].Outcome != runner.OutcomeSucceeded {
		t.Fatalf("expected in-flight conversion to finish and run to stop, got %#v", results)
	}
	if status := jobStatus(t, store, second.ID); status != queue.StatusPending {
		t.Fatalf("expected second job pending, got %s", status)
	}
}

func TestConcurrentRunsAreSerialized(t *testing.T) {
	verifyNoLeaks(t)

	r, store, eng, _ := newRunner(t)
	ctx := context.Background()
	for _, name := range []string{"a.wav", "b.wav", "c.wav", "d.wav"} {
		testsupport.AddJob(t, store, name, "audio/wav", "mp3")
	}
	eng.convertFn = func(engine.Request) ([]byte, error) {
		time.Sleep(5 * time.Millisecond)
		return []byte("mp3"), nil
	}

	var wg sync.WaitGroup
	var total atomic.Int32
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := r.RunAll(ctx)
			if err != nil {
				t.Errorf("RunAll failed: %v", err)
				return
			}
			for range seq {
				total.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := eng.maxActive.Load(); got != 1 {
		t.Fatalf("expected conversions to run one at a time, saw %d", got)
	}
	if got := eng.convertCount(); got != 4 {
		t.Fatalf("expected each job converted once, got %d", got)
	}
	if got := total.Load(); got != 4 {
		t.Fatalf("expected 4 results across runs, got %d", got)
	}
}

func TestRetriedJobRunsAgain(t *testing.T) {
	r, store, eng, _ := newRunner(t)
	ctx := context.Background()
	job := testsupport.AddJob(t, store, "a.avi", "video/x-msvideo", "webm")

	var fail atomic.Bool
	fail.Store(true)
	eng.convertFn = func(engine.Request) ([]byte, error) {
		if fail.Load() {
			return nil, errors.New("exec failed")
		}
		return []byte("webm"), nil
	}

	if results := collect(t, r, ctx); len(results) != 1 || results[0].Outcome != runner.OutcomeFailed {
		t.Fatalf("expected failure, got %#v", results)
	}
	if results := collect(t, r, ctx); len(results) != 0 {
		t.Fatalf("expected failed job to be excluded until retried, got %#v", results)
	}
	if _, err := store.Retry(ctx, job.ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	fail.Store(false)
	if results := collect(t, r, ctx); len(results) != 1 || results[0].Outcome != runner.OutcomeSucceeded {
		t.Fatalf("expected retried job to succeed, got %#v", results)
	}
}

func TestRunAllEmptyQueue(t *testing.T) {
	r, _, eng, notifier := newRunner(t)
	if results := collect(t, r, context.Background()); len(results) != 0 {
		t.Fatalf("expected no results, got %#v", results)
	}
	if eng.loadCount() != 0 {
		t.Fatal("expected engine untouched for empty queue")
	}
	if len(notifier.eventNames()) != 0 {
		t.Fatal("expected no summary for empty run")
	}
}
