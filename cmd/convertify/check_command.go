package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"convertify/internal/config"
	"convertify/internal/deps"
	"convertify/internal/engine"
	"convertify/internal/preflight"
)

const versionProbeTimeout = 5 * time.Second

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check binaries, directories, and notification settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if !printChecks(runCtx, out, ctx.configPath, cfg, colorize) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

// printChecks renders every check and reports whether all required ones passed.
func printChecks(ctx context.Context, out io.Writer, configPath string, cfg *config.Config, colorize bool) bool {
	healthy := true

	for _, line := range renderSectionHeader("Configuration", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, valueOrDash(configPath), colorize))
	fmt.Fprintln(out, renderStatusLine("Output verification", statusInfo, yesNo(cfg.Engine.VerifyOutput), colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	statuses := preflight.CheckSystemDeps(cfg)
	for _, status := range statuses {
		fmt.Fprintln(out, dependencyStatusLine(status, colorize))
	}
	if len(deps.Missing(statuses)) > 0 {
		healthy = false
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
		version, err := engine.NewFFmpeg(cfg.Engine.FFmpegBinary).Load(probeCtx)
		cancel()
		if err != nil {
			healthy = false
			fmt.Fprintln(out, renderStatusLine("FFmpeg version", statusError, err.Error(), colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("FFmpeg version", statusOK, version, colorize))
		}
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Environment", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
			healthy = false
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	if cfg.Notifications.NtfyTopic == "" {
		fmt.Fprintln(out, renderStatusLine("ntfy", statusWarn, "Disabled (no topic configured)", colorize))
	}
	if cfg.Metrics.Listen != "" {
		fmt.Fprintln(out, renderStatusLine("Metrics", statusInfo, cfg.Metrics.Listen, colorize))
	}
	return healthy
}

func dependencyStatusLine(status deps.Status, colorize bool) string {
	label := status.Name
	if status.Available {
		return renderStatusLine(label, statusOK, status.Path, colorize)
	}
	if status.Optional {
		return renderStatusLine(label, statusWarn, status.Detail+" (optional)", colorize)
	}
	return renderStatusLine(label, statusError, status.Detail, colorize)
}
