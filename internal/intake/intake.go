// Package intake adapts dropped or selected files into queue jobs.
//
// It applies the same accept filter a drop zone would: an extension allow
// list per media class plus any declared image, audio or video MIME type.
// The queue classifies files again on its own, so this filter only decides
// what the user sees rejected.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"convertify/internal/formats"
	"convertify/internal/logging"
	"convertify/internal/notifications"
	"convertify/internal/queue"
)

// acceptedExtensions lists the extensions accepted per class along with the
// MIME type declared for files read from disk.
var acceptedExtensions = map[string]string{
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
}

// Rejection describes a file the intake refused.
type Rejection struct {
	File   queue.File
	Reason string
}

// Intake enqueues accepted files and reports rejected ones.
type Intake struct {
	store    *queue.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs an Intake. A nil notifier disables rejection notifications.
func New(store *queue.Store, notifier notifications.Service, logger *slog.Logger) *Intake {
	return &Intake{
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "intake"),
	}
}

// Accepts reports whether file passes the accept filter. The reason explains
// a rejection.
func Accepts(file queue.File) (bool, string) {
	ext := strings.ToLower(filepath.Ext(file.Name))
	if _, ok := acceptedExtensions[ext]; ok {
		return true, ""
	}
	if formats.ClassOf(file.MediaType) != formats.ClassUnknown {
		return true, ""
	}
	if ext == "" {
		return false, "file type not recognized"
	}
	return false, fmt.Sprintf("%s files are not accepted", ext)
}

// OnFilesDropped enqueues every accepted file in the given order and returns
// the created jobs plus the rejected files.
func (i *Intake) OnFilesDropped(ctx context.Context, files []queue.File) ([]*queue.Job, []Rejection, error) {
	if i == nil || i.store == nil {
		return nil, nil, errors.New("intake store unavailable")
	}
	var (
		jobs       []*queue.Job
		rejections []Rejection
	)
	for _, file := range files {
		if ok, reason := Accepts(file); !ok {
			rejections = append(rejections, Rejection{File: file, Reason: reason})
			continue
		}
		job, err := i.store.Add(ctx, file)
		if err != nil {
			return jobs, rejections, fmt.Errorf("enqueue %s: %w", file.Name, err)
		}
		i.logger.Debug("file queued",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("source_file", job.SourceName),
			logging.String(logging.FieldMediaClass, job.MediaClass.String()),
			logging.Int64("size_bytes", job.SourceSize),
		)
		jobs = append(jobs, job)
	}
	return jobs, rejections, nil
}

// OnFilesRejected publishes one notification per rejected file.
func (i *Intake) OnFilesRejected(ctx context.Context, rejections []Rejection) {
	for _, rejection := range rejections {
		i.logger.Info("file rejected",
			logging.String(logging.FieldEventType, "file_rejected"),
			logging.String("source_file", rejection.File.Name),
			logging.String("reason", rejection.Reason),
		)
		if i.notifier == nil {
			continue
		}
		if err := i.notifier.Publish(ctx, notifications.EventFileRejected, notifications.Payload{
			"file":   rejection.File.Name,
			"reason": rejection.Reason,
		}); err != nil {
			i.logger.Debug("rejection notification failed", logging.Error(err))
		}
	}
}

// ReadFiles loads local files the way a browser hands over dropped files: the
// base name, the bytes, and a MIME type declared from the extension.
func ReadFiles(paths []string) ([]queue.File, error) {
	files := make([]queue.File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		files = append(files, queue.File{
			Name:      name,
			MediaType: DeclaredType(name),
			Data:      data,
		})
	}
	return files, nil
}

// DeclaredType returns the MIME type implied by the extension of name.
func DeclaredType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mediaType, ok := acceptedExtensions[ext]; ok {
		return mediaType
	}
	mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}
	return mediaType
}
