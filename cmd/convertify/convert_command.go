package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"convertify/internal/api"
	"convertify/internal/config"
	"convertify/internal/fileutil"
	"convertify/internal/intake"
	"convertify/internal/logging"
	"convertify/internal/metrics"
	"convertify/internal/queue"
	"convertify/internal/runner"
)

type convertOptions struct {
	to            string
	outDir        string
	metricsListen string
	retries       int
	overwrite     bool
	jsonOutput    bool
}

// fileArg is one FILE[:FORMAT] argument.
type fileArg struct {
	path   string
	target string
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert FILE[:FORMAT]...",
		Short: "Queue files, convert them, and save the results",
		Long: `Queue the given files, convert every file that has a target format, and
save the converted files to the output directory.

A target format is chosen per file with a FILE:FORMAT suffix or for every
file with --to. Files without a target are reported as skipped.`,
		Example: `  convertify convert photo.png:webp
  convertify convert --to mp3 a.wav b.ogg
  convertify convert clip.mov:mp4 --out ~/Videos --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.outDir) == "" {
				opts.outDir = cfg.Paths.OutputDir
			} else if opts.outDir, err = config.ExpandPath(opts.outDir); err != nil {
				return fmt.Errorf("resolve --out: %w", err)
			}
			if strings.TrimSpace(opts.metricsListen) == "" {
				opts.metricsListen = cfg.Metrics.Listen
			}
			return runConvert(cmd, cfg, logger, parseFileArgs(args, opts.to), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.to, "to", "t", "", "Target format for files without a :FORMAT suffix")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Directory converted files are saved to (defaults to paths.output_dir)")
	cmd.Flags().StringVar(&opts.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address while converting")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Run failed conversions again up to this many times")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace existing files in the output directory")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, fileArgs []fileArg, opts convertOptions) error {
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	paths := make([]string, 0, len(fileArgs))
	for _, parsed := range fileArgs {
		paths = append(paths, parsed.path)
	}
	files, err := intake.ReadFiles(paths)
	if err != nil {
		return err
	}

	sess, err := openSession(runCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("session cleanup failed", logging.Error(err))
		}
	}()

	if addr := strings.TrimSpace(opts.metricsListen); addr != "" {
		metricsCtx, stopMetrics := context.WithCancel(runCtx)
		defer stopMetrics()
		go func() {
			if err := metrics.Serve(metricsCtx, addr, logger); err != nil {
				logging.WarnWithContext(logger, "metrics endpoint stopped", "metrics_serve",
					logging.String("address", addr),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "choose a free address with --metrics-listen"),
				)
			}
		}()
	}

	added, err := sess.service.AddFiles(runCtx, files)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	for id, target := range assignTargets(files, fileArgs, added.Jobs) {
		if err := sess.service.SetTargetFormat(runCtx, id, target); err != nil {
			fmt.Fprintf(stderr, "warning: %v\n", err)
		}
	}

	response := api.RunResponse{Rejected: added.Rejected}
	index := map[string]int{}
	for attempt := 0; ; attempt++ {
		failedIDs, err := runOnce(runCtx, sess, logger, opts, &response, index)
		if err != nil {
			return err
		}
		if len(failedIDs) == 0 || attempt >= opts.retries || runCtx.Err() != nil {
			break
		}
		retried, err := api.RetryFailedJobsByID(runCtx, sess.service, failedIDs)
		if err != nil {
			return fmt.Errorf("retry failed jobs: %w", err)
		}
		logger.Info("retrying failed conversions",
			logging.Int("attempt", attempt+1),
			logging.Int64("jobs", retried.UpdatedCount),
		)
	}
	for _, view := range response.Results {
		switch runner.Outcome(view.Outcome) {
		case runner.OutcomeSucceeded:
			response.Succeeded++
		case runner.OutcomeFailed:
			response.Failed++
		case runner.OutcomeSkipped:
			response.Skipped++
		}
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd, response); err != nil {
			return err
		}
	} else {
		printRunResponse(cmd.OutOrStdout(), response, shouldColorize(cmd.OutOrStdout()))
	}

	if err := runCtx.Err(); err != nil {
		return err
	}
	if response.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", response.Failed, len(response.Results))
	}
	return nil
}

// parseFileArgs splits FILE:FORMAT arguments. An argument naming an existing
// file is taken whole so names containing a colon still work.
func parseFileArgs(args []string, defaultTarget string) []fileArg {
	defaultTarget = strings.TrimSpace(defaultTarget)
	fileArgs := make([]fileArg, 0, len(args))
	for _, arg := range args {
		parsed := fileArg{path: arg, target: defaultTarget}
		if _, err := os.Stat(arg); err != nil {
			if idx := strings.LastIndex(arg, ":"); idx > 0 {
				suffix := arg[idx+1:]
				if suffix != "" && !strings.ContainsAny(suffix, `/\`) {
					parsed.path = arg[:idx]
					parsed.target = suffix
				}
			}
		}
		fileArgs = append(fileArgs, parsed)
	}
	return fileArgs
}

// assignTargets pairs each created job with the target requested for its
// file. Jobs are created in file order, skipping rejected files.
func assignTargets(files []queue.File, fileArgs []fileArg, jobs []api.JobView) map[string]string {
	targets := make(map[string]string, len(jobs))
	next := 0
	for i, file := range files {
		if ok, _ := intake.Accepts(file); !ok {
			continue
		}
		if next >= len(jobs) {
			break
		}
		if target := fileArgs[i].target; target != "" {
			targets[jobs[next].ID] = target
		}
		next++
	}
	return targets
}

// runOnce executes one run, saving artifacts as results arrive. Results
// replace earlier ones for the same job. Saved jobs are removed from the
// queue; the ids of failed jobs are returned.
func runOnce(ctx context.Context, sess *session, logger *slog.Logger, opts convertOptions, response *api.RunResponse, index map[string]int) ([]string, error) {
	results, err := sess.service.RunAll(ctx)
	if err != nil {
		return nil, err
	}
	var failedIDs, savedIDs []string
	for result := range results {
		view := api.FromResult(result)
		switch result.Outcome {
		case runner.OutcomeSucceeded:
			saved, err := saveArtifact(opts, result.Artifact)
			if err != nil {
				view.Error = err.Error()
				logging.WarnWithContext(logger, "artifact save failed", "artifact_save",
					logging.String(logging.FieldJobID, result.JobID),
					logging.String("output_dir", opts.outDir),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that the output directory is writable"),
				)
				break
			}
			view.SavedPath = saved
			savedIDs = append(savedIDs, result.JobID)
		case runner.OutcomeFailed:
			failedIDs = append(failedIDs, result.JobID)
		}
		if i, ok := index[result.JobID]; ok {
			response.Results[i] = view
		} else {
			index[result.JobID] = len(response.Results)
			response.Results = append(response.Results, view)
		}
	}
	if len(savedIDs) > 0 {
		removed, err := api.RemoveJobsByID(context.WithoutCancel(ctx), sess.service, savedIDs)
		if err != nil {
			return nil, fmt.Errorf("release saved jobs: %w", err)
		}
		logger.Debug("released saved jobs", logging.Int64("count", removed.RemovedCount))
	}
	return failedIDs, nil
}

func saveArtifact(opts convertOptions, artifact *queue.Artifact) (string, error) {
	if artifact == nil {
		return "", errors.New("no artifact produced")
	}
	return fileutil.SaveArtifact(opts.outDir, artifact.Name, artifact.Data, opts.overwrite)
}

func printRunResponse(out io.Writer, response api.RunResponse, colorize bool) {
	if len(response.Results) == 0 {
		fmt.Fprintln(out, "Nothing to convert")
	} else {
		rows := make([][]string, 0, len(response.Results))
		for _, result := range response.Results {
			outcome := runner.Outcome(result.Outcome)
			rows = append(rows, []string{
				result.Name,
				result.MediaClass,
				valueOrDash(result.Format),
				paint(result.Outcome, statusKindColors(outcomeKind(outcome)), colorize),
				resultOutput(result),
				resultDetail(result),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"File", "Class", "Target", "Outcome", "Output", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}

	if len(response.Rejected) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Rejected", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, rejection := range response.Rejected {
			fmt.Fprintln(out, renderStatusLine(rejection.Name, statusWarn, rejection.Reason, colorize))
		}
	}

	fmt.Fprintf(out, "\n%d converted, %d failed, %d skipped\n", response.Succeeded, response.Failed, response.Skipped)
}

func resultOutput(result api.ResultView) string {
	if result.ArtifactName == "" {
		return "-"
	}
	name := result.ArtifactName
	if result.SavedPath != "" {
		name = result.SavedPath
	}
	return fmt.Sprintf("%s (%s)", name, humanize.IBytes(uint64(result.ArtifactSize)))
}

func resultDetail(result api.ResultView) string {
	switch {
	case result.Error != "":
		return result.Error
	case result.Reason != "":
		return result.Reason
	default:
		return ""
	}
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
