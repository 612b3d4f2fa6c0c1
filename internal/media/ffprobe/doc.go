// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The engine uses it to verify that a converted file is a readable container
// with at least one stream before the artifact is handed back to the caller.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, format name)
package ffprobe
