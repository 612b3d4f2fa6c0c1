package config

const (
	defaultWorkspaceDir          = "~/.cache/convertify/workspace"
	defaultOutputDir             = "."
	defaultLogDir                = "~/.local/share/convertify/logs"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultEngineLoadTimeout     = 30
	defaultVideoPreset           = "veryfast"
	defaultVideoCRF              = 23
	defaultAudioBitrate          = "192k"
	defaultJPEGQScale            = 2
	defaultWebPQuality           = 90
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultNotifyRequestTimeout  = 10
	defaultMetricsListen         = ""
	defaultConfigRelativePath    = "~/.config/convertify/config.toml"
	defaultProjectConfigFilename = "convertify.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
		},
		Engine: Engine{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			VerifyOutput:       true,
			LoadTimeoutSeconds: defaultEngineLoadTimeout,
			VideoPreset:        defaultVideoPreset,
			VideoCRF:           defaultVideoCRF,
			AudioBitrate:       defaultAudioBitrate,
			JPEGQScale:         defaultJPEGQScale,
			WebPQuality:        defaultWebPQuality,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Succeeded:      true,
			Skipped:        true,
			Failed:         true,
			Rejected:       true,
			Summary:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Listen: defaultMetricsListen,
		},
	}
}
