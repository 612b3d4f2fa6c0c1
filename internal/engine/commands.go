package engine

import (
	"strconv"

	"convertify/internal/config"
	"convertify/internal/formats"
)

// Request describes one conversion. InputName and OutputName are plain file
// names inside the workspace and must differ; Label names the job's source
// file in errors and logs.
type Request struct {
	Input      []byte
	InputName  string
	OutputName string
	Class      formats.MediaClass
	Format     formats.Format
	Label      string
}

func (r Request) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.InputName
}

// Policy holds the fixed encoder parameters applied per media class.
type Policy struct {
	VideoPreset  string
	VideoCRF     int
	AudioBitrate string
	JPEGQScale   int
	WebPQuality  int
}

// DefaultPolicy returns the encoder parameters of the default configuration.
func DefaultPolicy() Policy {
	return PolicyFromConfig(nil)
}

// PolicyFromConfig extracts encoder parameters from cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	return Policy{
		VideoPreset:  cfg.Engine.VideoPreset,
		VideoCRF:     cfg.Engine.VideoCRF,
		AudioBitrate: cfg.Engine.AudioBitrate,
		JPEGQScale:   cfg.Engine.JPEGQScale,
		WebPQuality:  cfg.Engine.WebPQuality,
	}
}

// evenDimensions rounds odd sizes down; 4:2:0 encoders require even width and height.
const evenDimensions = "scale=trunc(iw/2)*2:trunc(ih/2)*2"

// BuildArgs maps a request to ffmpeg arguments. The same format in and out
// still re-encodes; there is no stream copy shortcut.
func BuildArgs(req Request, policy Policy) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y", "-i", req.InputName}
	switch req.Class {
	case formats.ClassVideo:
		args = append(args, videoArgs(req.Format, policy)...)
	case formats.ClassAudio:
		args = append(args, audioArgs(req.Format, policy)...)
	case formats.ClassImage:
		args = append(args, imageArgs(req.Format, policy)...)
	}
	return append(args, req.OutputName)
}

func videoArgs(format formats.Format, policy Policy) []string {
	crf := strconv.Itoa(policy.VideoCRF)
	if format == "webm" {
		return []string{
			"-vf", evenDimensions,
			"-c:v", "libvpx-vp9", "-deadline", "realtime", "-cpu-used", "8",
			"-crf", crf, "-b:v", "0",
			"-c:a", "libopus", "-b:a", policy.AudioBitrate,
		}
	}
	args := []string{
		"-vf", evenDimensions,
		"-c:v", "libx264", "-preset", policy.VideoPreset, "-crf", crf,
		"-pix_fmt", "yuv420p",
	}
	if format == "avi" {
		args = append(args, "-c:a", "libmp3lame", "-b:a", policy.AudioBitrate)
	} else {
		args = append(args, "-c:a", "aac", "-b:a", policy.AudioBitrate)
	}
	if format == "mp4" || format == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	return args
}

func audioArgs(format formats.Format, policy Policy) []string {
	args := []string{"-vn"}
	switch format {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-b:a", policy.AudioBitrate)
	case "ogg":
		args = append(args, "-c:a", "libvorbis", "-b:a", policy.AudioBitrate)
	case "aac":
		args = append(args, "-c:a", "aac", "-b:a", policy.AudioBitrate)
	case "m4a":
		args = append(args, "-c:a", "aac", "-b:a", policy.AudioBitrate, "-movflags", "+faststart")
	case "wav":
		args = append(args, "-c:a", "pcm_s16le")
	case "flac":
		args = append(args, "-c:a", "flac")
	}
	return args
}

func imageArgs(format formats.Format, policy Policy) []string {
	args := []string{"-frames:v", "1"}
	switch format {
	case "heif":
		// libx265 rejects the RGB and odd-sized layouts most stills arrive in.
		return append(args,
			"-vf", evenDimensions+",format=yuv420p",
			"-c:v", "libx265", "-x265-params", "log-level=error",
			"-tag:v", "hvc1", "-f", "mp4", "-brand", "heic",
		)
	case "jpeg", "jpg":
		args = append(args, "-q:v", strconv.Itoa(policy.JPEGQScale), "-update", "1")
	case "webp":
		args = append(args, "-c:v", "libwebp", "-quality", strconv.Itoa(policy.WebPQuality))
	case "ico":
		args = append(args, "-vf", "scale='min(256,iw)':'min(256,ih)':force_original_aspect_ratio=decrease")
	case "png", "bmp", "tiff":
		args = append(args, "-update", "1")
	}
	return args
}
