package preflight

import (
	"context"
	"os"

	"convertify/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))

	// The output directory is created on first save, so only an existing one is checked.
	if _, err := os.Stat(cfg.Paths.OutputDir); err == nil {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	} else {
		results = append(results, Result{Name: "Output directory", Passed: true, Detail: cfg.Paths.OutputDir + " (created on first save)"})
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic, cfg.NotifyRequestTimeout()))
	}

	return results
}
