package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"convertify/internal/media/ffprobe"
	"convertify/internal/services"
)

var commandContext = exec.CommandContext

// Transcoder is the capability a Handle drives.
type Transcoder interface {
	// Load verifies the transcoder is usable and returns its version.
	Load(ctx context.Context) (string, error)
	// Run executes one command with dir as the working directory.
	Run(ctx context.Context, dir string, args []string) error
}

// Prober verifies converted output.
type Prober interface {
	Check(ctx context.Context) error
	// Probe returns the number of audio and video streams in the file at path.
	Probe(ctx context.Context, path string) (int, error)
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	binary string
}

// NewFFmpeg returns a transcoder executing binary, defaulting to ffmpeg on PATH.
func NewFFmpeg(binary string) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary}
}

// Load runs ffmpeg -version and returns the reported version.
func (f *FFmpeg) Load(ctx context.Context) (string, error) {
	cmd := commandContext(ctx, f.binary, "-hide_banner", "-version") //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "load", "ffmpeg -version", lastLine(exitStderr(err)), err)
	}
	version := parseVersion(string(output))
	if version == "" {
		return "", services.Wrap(services.ErrExternalTool, "load", "ffmpeg -version", "unrecognized version output", nil)
	}
	return version, nil
}

// Run executes ffmpeg with args inside dir.
func (f *FFmpeg) Run(ctx context.Context, dir string, args []string) error {
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "convert", "run ffmpeg", lastLine(stderr.String()), err)
	}
	return nil
}

func parseVersion(output string) string {
	first, _, _ := strings.Cut(output, "\n")
	fields := strings.Fields(first)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return ""
}

func exitStderr(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(exitErr.Stderr)
	}
	return ""
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// FFprobe verifies output with the ffprobe binary.
type FFprobe struct {
	binary string
}

// NewFFprobe returns a prober executing binary, defaulting to ffprobe on PATH.
func NewFFprobe(binary string) *FFprobe {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary}
}

// Check ensures the ffprobe binary resolves.
func (p *FFprobe) Check(context.Context) error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return services.Wrap(services.ErrConfiguration, "load", "locate ffprobe", fmt.Sprintf("binary %q not found", p.binary), err)
	}
	return nil
}

// Probe inspects path and counts its audio and video streams. Audio outputs
// without a positive duration count as empty.
func (p *FFprobe) Probe(ctx context.Context, path string) (int, error) {
	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return 0, err
	}
	return result.PlayableStreamCount(), nil
}
