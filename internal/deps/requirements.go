package deps

import "convertify/internal/config"

// EngineRequirements lists the binaries the conversion engine executes.
// ffprobe is only required when output verification is enabled.
func EngineRequirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Engine.FFmpegBinary,
			Description: "Transcodes every queued job",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Engine.FFprobeBinary,
			Description: "Verifies converted output containers",
			Optional:    !cfg.Engine.VerifyOutput,
		},
	}
}
