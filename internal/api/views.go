package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"convertify/internal/formats"
	"convertify/internal/intake"
	"convertify/internal/queue"
	"convertify/internal/runner"
)

// FormatFileSize renders a byte count in KB below one MB and in MB above,
// with two decimals.
func FormatFileSize(size int64) string {
	const mb = 1024 * 1024
	if size >= mb {
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	}
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}

// FromJob converts a queue job to its view.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	targets := formats.AllowedTargets(job.MediaClass)
	allowed := make([]string, 0, len(targets))
	for _, target := range targets {
		allowed = append(allowed, target.String())
	}
	view := JobView{
		ID:             job.ID,
		Name:           job.SourceName,
		Size:           job.SourceSize,
		SizeLabel:      FormatFileSize(job.SourceSize),
		MediaType:      job.SourceMediaType,
		MediaClass:     job.MediaClass.String(),
		Status:         string(job.Status),
		TargetFormat:   job.TargetFormat.String(),
		AllowedTargets: allowed,
		Error:          strings.TrimSpace(job.ErrorDetail),
		CreatedAt:      formatTime(job.CreatedAt),
		UpdatedAt:      formatTime(job.UpdatedAt),
	}
	if !job.CreatedAt.IsZero() {
		view.AddedLabel = humanize.Time(job.CreatedAt)
	}
	if job.Artifact != nil {
		view.ArtifactName = job.Artifact.Name
		view.ArtifactSize = job.Artifact.Size
	}
	return view
}

// FromJobs converts jobs preserving queue order.
func FromJobs(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// FromResult converts a runner result to its view.
func FromResult(result runner.Result) ResultView {
	view := ResultView{
		JobID:      result.JobID,
		Name:       result.SourceName,
		MediaClass: result.MediaClass.String(),
		Format:     result.Format.String(),
		Outcome:    string(result.Outcome),
		Reason:     result.SkipReason.Description(),
	}
	if result.Artifact != nil {
		view.ArtifactName = result.Artifact.Name
		view.ArtifactSize = result.Artifact.Size
	}
	if result.Err != nil {
		view.Error = strings.TrimSpace(result.Err.Error())
	}
	return view
}

// FromRejections converts intake rejections to views.
func FromRejections(rejections []intake.Rejection) []RejectionView {
	views := make([]RejectionView, 0, len(rejections))
	for _, rejection := range rejections {
		views = append(views, RejectionView{Name: rejection.File.Name, Reason: rejection.Reason})
	}
	return views
}

// Formats lists the allowed targets of every media class.
func Formats() []FormatsView {
	views := make([]FormatsView, 0, len(formats.Classes))
	for _, class := range formats.Classes {
		targets := formats.AllowedTargets(class)
		names := make([]string, 0, len(targets))
		for _, target := range targets {
			names = append(names, target.String())
		}
		views = append(views, FormatsView{MediaClass: class.String(), Targets: names})
	}
	return views
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
