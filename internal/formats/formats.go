package formats

import (
	"mime"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MediaClass is the coarse category of a source file.
type MediaClass string

const (
	ClassUnknown MediaClass = ""
	ClassImage   MediaClass = "image"
	ClassAudio   MediaClass = "audio"
	ClassVideo   MediaClass = "video"
)

// Format identifies a target format by its lower-case extension.
type Format string

// Classes lists the recognized media classes in display order.
var Classes = []MediaClass{ClassImage, ClassAudio, ClassVideo}

var targets = map[MediaClass][]Format{
	ClassImage: {"png", "jpeg", "jpg", "webp", "gif", "bmp", "tiff", "ico", "heif"},
	ClassAudio: {"mp3", "wav", "ogg", "aac", "m4a", "flac"},
	ClassVideo: {"mp4", "mov", "avi", "webm", "mkv"},
}

var mimeTypes = map[Format]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"ico":  "image/vnd.microsoft.icon",
	"heif": "image/heif",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
}

var labeler = cases.Upper(language.Und)

// AllowedTargets returns the legal target formats for class in display order.
// Unknown classes have no targets.
func AllowedTargets(class MediaClass) []Format {
	return slices.Clone(targets[class])
}

// IsAllowed reports whether format is a legal target for class.
func IsAllowed(class MediaClass, format Format) bool {
	return slices.Contains(targets[class], format)
}

// ParseFormat normalizes user input such as " .PNG " into a known Format.
func ParseFormat(value string) (Format, bool) {
	normalized := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "."))
	if normalized == "" {
		return "", false
	}
	if _, ok := mimeTypes[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// ParseClass normalizes a media class name.
func ParseClass(value string) (MediaClass, bool) {
	class := MediaClass(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := targets[class]; !ok {
		return ClassUnknown, false
	}
	return class, true
}

// ClassOf classifies a declared MIME type by its top-level type.
func ClassOf(mediaType string) MediaClass {
	mediaType = strings.TrimSpace(mediaType)
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	top, _, _ := strings.Cut(strings.ToLower(mediaType), "/")
	switch MediaClass(top) {
	case ClassImage:
		return ClassImage
	case ClassAudio:
		return ClassAudio
	case ClassVideo:
		return ClassVideo
	default:
		return ClassUnknown
	}
}

// Classify determines the media class of a source file. The declared type
// wins when it names a class; an empty or generic declaration falls back to
// sniffing the leading content bytes.
func Classify(mediaType string, head []byte) MediaClass {
	if class := ClassOf(mediaType); class != ClassUnknown {
		return class
	}
	if !isGeneric(mediaType) || len(head) == 0 {
		return ClassUnknown
	}
	return ClassOf(mimetype.Detect(head).String())
}

// Sniff returns the detected MIME type of content.
func Sniff(head []byte) string {
	if len(head) == 0 {
		return ""
	}
	detected, _, _ := mime.ParseMediaType(mimetype.Detect(head).String())
	return detected
}

func isGeneric(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	default:
		return false
	}
}

// MIMEType returns the MIME type used for artifacts of format.
func MIMEType(format Format) string {
	if value, ok := mimeTypes[format]; ok {
		return value
	}
	return "application/octet-stream"
}

// Label renders format for display, e.g. "WEBP".
func Label(format Format) string {
	return labeler.String(string(format))
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	if f == "" {
		return ""
	}
	return "." + string(f)
}

func (f Format) String() string { return string(f) }

func (c MediaClass) String() string {
	if c == ClassUnknown {
		return "unknown"
	}
	return string(c)
}
