package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"convertify/internal/config"
	"convertify/internal/logging"
	"convertify/internal/metrics"
	"convertify/internal/preflight"
	"convertify/internal/services"
)

const defaultLoadTimeout = 30 * time.Second

// Options configures a Handle.
type Options struct {
	// Root is the directory workspaces are created under.
	Root        string
	LoadTimeout time.Duration
	Policy      Policy
	Transcoder  Transcoder
	// Prober verifies outputs when set.
	Prober Prober
	Logger *slog.Logger
}

// Handle is the single shared engine instance. It is safe for concurrent
// use; conversions are executed one at a time in arrival order.
type Handle struct {
	root        string
	loadTimeout time.Duration
	policy      Policy
	transcoder  Transcoder
	prober      Prober
	logger      *slog.Logger

	loads singleflight.Group
	slot  *semaphore.Weighted

	mu        sync.Mutex
	state     State
	closed    bool
	version   string
	workspace *Workspace
}

// New constructs an unloaded Handle.
func New(opts Options) (*Handle, error) {
	if opts.Root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "workspace root not configured", nil)
	}
	if opts.Transcoder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "transcoder not configured", nil)
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}
	return &Handle{
		root:        opts.Root,
		loadTimeout: opts.LoadTimeout,
		policy:      opts.Policy,
		transcoder:  opts.Transcoder,
		prober:      opts.Prober,
		logger:      logging.NewComponentLogger(opts.Logger, "engine"),
		slot:        semaphore.NewWeighted(1),
	}, nil
}

// NewFromConfig constructs a Handle backed by the configured ffmpeg and,
// when output verification is enabled, ffprobe binaries.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Handle, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "config is nil", nil)
	}
	opts := Options{
		Root:        cfg.Paths.WorkspaceDir,
		LoadTimeout: cfg.EngineLoadTimeout(),
		Policy:      PolicyFromConfig(cfg),
		Transcoder:  NewFFmpeg(cfg.Engine.FFmpegBinary),
		Logger:      logger,
	}
	if cfg.Engine.VerifyOutput {
		opts.Prober = NewFFprobe(cfg.Engine.FFprobeBinary)
	}
	return New(opts)
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Version returns the transcoder version reported by the last load.
func (h *Handle) Version() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

// EnsureLoaded loads the engine if it is not ready yet. Concurrent callers
// share one load and observe its outcome. The load itself is not cancelled
// when ctx is; a caller whose ctx ends stops waiting with ctx.Err().
func (h *Handle) EnsureLoaded(ctx context.Context) error {
	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		return ErrClosed
	case h.state == StateReady:
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := h.loads.DoChan("load", func() (any, error) {
		return nil, h.load(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) load(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateReady {
		h.mu.Unlock()
		return nil
	}
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.state = StateLoading
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, h.loadTimeout)
	defer cancel()

	started := time.Now()
	h.logger.Info("engine loading", logging.String("workspace_root", h.root))

	version, workspace, initErr := h.initialize(ctx)

	h.mu.Lock()
	if initErr == nil && h.closed {
		initErr = &InitError{Stage: "workspace", Err: ErrClosed}
		_ = workspace.Close()
	}
	if initErr != nil {
		h.state = StateUnloaded
		h.mu.Unlock()
		metrics.RecordEngineLoad(false)
		h.logger.Error("engine load failed",
			logging.String("stage", initErr.Stage),
			logging.Error(initErr.Err),
			logging.ErrorKind(initErr.Err),
		)
		return initErr
	}
	h.state = StateReady
	h.version = version
	h.workspace = workspace
	h.mu.Unlock()

	metrics.RecordEngineLoad(true)
	h.logger.Info("engine ready",
		logging.String("version", version),
		logging.String("workspace", workspace.Dir()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (h *Handle) initialize(ctx context.Context) (string, *Workspace, *InitError) {
	version, err := h.transcoder.Load(ctx)
	if err != nil {
		return "", nil, &InitError{Stage: "transcoder", Err: err}
	}
	if h.prober != nil {
		if err := h.prober.Check(ctx); err != nil {
			return "", nil, &InitError{Stage: "prober", Err: err}
		}
	}
	if err := os.MkdirAll(h.root, 0o755); err != nil {
		return "", nil, &InitError{Stage: "workspace", Err: err}
	}
	if check := preflight.CheckDirectoryAccess("workspace root", h.root); !check.Passed {
		return "", nil, &InitError{Stage: "workspace", Err: errors.New(check.Detail)}
	}
	if removed, err := SweepStale(h.root); err != nil {
		logging.WarnWithContext(h.logger, "stale workspace sweep incomplete", "workspace_sweep",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove leftover engine-* directories under the workspace root"),
		)
	} else if removed > 0 {
		h.logger.Info("removed stale workspaces", logging.Int("count", removed))
	}
	if err := ctx.Err(); err != nil {
		return "", nil, &InitError{Stage: "timeout", Err: err}
	}
	workspace, err := NewWorkspace(h.root)
	if err != nil {
		return "", nil, &InitError{Stage: "workspace", Err: err}
	}
	return version, workspace, nil
}

// Convert runs one conversion. It requires a loaded engine and waits for the
// execution slot in arrival order. Input and output files are removed from
// the workspace before Convert returns, whatever the outcome.
func (h *Handle) Convert(ctx context.Context, req Request) ([]byte, error) {
	if err := h.checkReady(); err != nil {
		return nil, err
	}
	if req.InputName == req.OutputName {
		return nil, &ConversionError{Kind: WriteFailed, File: req.label(), Err: fmt.Errorf("%w: input and output share %q", ErrInvalidName, req.InputName)}
	}
	if err := h.slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.slot.Release(1)

	h.mu.Lock()
	workspace := h.workspace
	h.mu.Unlock()
	if workspace == nil {
		return nil, ErrNotLoaded
	}

	logger := logging.WithContext(ctx, h.logger).With(
		logging.String(logging.FieldFormat, req.Format.String()),
		logging.String(logging.FieldMediaClass, req.Class.String()),
	)
	defer func() {
		if err := workspace.Remove(req.InputName, req.OutputName); err != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the workspace root"),
			)
		}
	}()

	started := time.Now()
	output, err := h.convert(ctx, workspace, req)
	if err != nil {
		logger.Debug("conversion failed", logging.Error(err), logging.ErrorKind(err))
		return nil, err
	}
	elapsed := time.Since(started)
	metrics.ObserveConversion(req.Class.String(), req.Format.String(), elapsed, len(req.Input), len(output))
	logger.Debug("conversion finished",
		logging.Int("input_bytes", len(req.Input)),
		logging.Int("output_bytes", len(output)),
		logging.Duration("elapsed", elapsed),
	)
	return output, nil
}

func (h *Handle) convert(ctx context.Context, workspace *Workspace, req Request) ([]byte, error) {
	file := req.label()
	if err := workspace.Write(req.InputName, req.Input); err != nil {
		return nil, &ConversionError{Kind: WriteFailed, File: file, Err: err}
	}
	if err := h.transcoder.Run(ctx, workspace.Dir(), BuildArgs(req, h.policy)); err != nil {
		return nil, &ConversionError{Kind: ExecFailed, File: file, Err: err}
	}
	present, err := workspace.Has(req.OutputName)
	if err != nil {
		return nil, &ConversionError{Kind: ExecFailed, File: file, Err: err}
	}
	if !present {
		return nil, &ConversionError{Kind: ExecFailed, File: file, Err: ErrNoOutput}
	}
	if h.prober != nil {
		streams, err := h.prober.Probe(ctx, workspace.Path(req.OutputName))
		if err != nil {
			return nil, &ConversionError{Kind: ExecFailed, File: file, Err: err}
		}
		if streams == 0 {
			return nil, &ConversionError{Kind: ExecFailed, File: file, Err: ErrInvalidOutput}
		}
	}
	output, err := workspace.Read(req.OutputName)
	if err != nil {
		return nil, &ConversionError{Kind: ReadFailed, File: file, Err: err}
	}
	return output, nil
}

func (h *Handle) checkReady() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.state != StateReady {
		return ErrNotLoaded
	}
	return nil
}

// Close waits for an in-flight conversion, then deletes the workspace.
// The handle cannot be loaded again afterwards.
func (h *Handle) Close() error {
	if err := h.slot.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer h.slot.Release(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.state = StateUnloaded
	if h.workspace == nil {
		return nil
	}
	err := h.workspace.Close()
	h.workspace = nil
	return err
}
