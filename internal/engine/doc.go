// Package engine owns the lifecycle of the shared transcoding engine.
//
// A Handle loads the engine at most once (concurrent callers join the load in
// flight), then serializes conversions through a single execution slot. Each
// conversion is a scoped unit inside the handle's private workspace
// directory: the input is written, ffmpeg runs the command mapped from the
// job's media class and target format, the output is checked in the
// directory listing and read back, and both files are removed on every exit
// path.
//
// The Transcoder and Prober interfaces describe the opaque capabilities the
// handle drives; FFmpeg and FFprobe are the production implementations.
package engine
