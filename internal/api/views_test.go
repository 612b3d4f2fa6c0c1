package api

import (
	"errors"
	"slices"
	"testing"
	"time"

	"convertify/internal/formats"
	"convertify/internal/queue"
	"convertify/internal/runner"
)

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{0, "0.00 KB"},
		{512, "0.50 KB"},
		{1536, "1.50 KB"},
		{1024*1024 - 1, "1024.00 KB"},
		{1024 * 1024, "1.00 MB"},
		{5*1024*1024 + 512*1024, "5.50 MB"},
	}
	for _, tc := range cases {
		if got := FormatFileSize(tc.size); got != tc.want {
			t.Fatalf("FormatFileSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

func TestFromJob(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &queue.Job{
		ID:              "job-1",
		SourceName:      "song.wav",
		SourceSize:      2048,
		SourceMediaType: "audio/wav",
		MediaClass:      formats.ClassAudio,
		TargetFormat:    "mp3",
		Status:          queue.StatusSucceeded,
		Artifact:        &queue.Artifact{Name: "song.mp3", Size: 300},
		CreatedAt:       created,
	}

	view := FromJob(job)
	if view.SizeLabel != "2.00 KB" || view.Status != "succeeded" || view.MediaClass != "audio" {
		t.Fatalf("unexpected view %#v", view)
	}
	if view.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt %q", view.CreatedAt)
	}
	if view.AddedLabel == "" {
		t.Fatal("expected relative added label")
	}
	if !slices.Equal(view.AllowedTargets, []string{"mp3", "wav", "ogg", "aac", "m4a", "flac"}) {
		t.Fatalf("unexpected allowed targets %v", view.AllowedTargets)
	}
	if view.ArtifactName != "song.mp3" || view.ArtifactSize != 300 {
		t.Fatalf("unexpected artifact fields %#v", view)
	}

	unknown := FromJob(&queue.Job{ID: "job-2", SourceName: "a.pdf", Status: queue.StatusPending})
	if unknown.MediaClass != "unknown" || len(unknown.AllowedTargets) != 0 {
		t.Fatalf("expected no targets for unknown class, got %#v", unknown)
	}
}

func TestFromResult(t *testing.T) {
	skipped := FromResult(runner.Result{
		JobID:      "a",
		SourceName: "a.png",
		MediaClass: formats.ClassImage,
		Outcome:    runner.OutcomeSkipped,
		SkipReason: runner.SkipNoFormatSelected,
	})
	if skipped.Outcome != "skipped" || skipped.Reason != "no target format selected" {
		t.Fatalf("unexpected skipped view %#v", skipped)
	}

	failed := FromResult(runner.Result{JobID: "b", Outcome: runner.OutcomeFailed, Err: errors.New(" boom ")})
	if failed.Error != "boom" {
		t.Fatalf("unexpected failed view %#v", failed)
	}
}

func TestFormatsListsEveryClass(t *testing.T) {
	views := Formats()
	if len(views) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(views))
	}
	if views[0].MediaClass != "image" || !slices.Contains(views[0].Targets, "heif") {
		t.Fatalf("unexpected image targets %#v", views[0])
	}
}
