package runner

import (
	"convertify/internal/formats"
	"convertify/internal/queue"
)

// Outcome is the result kind of one processed job.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// SkipReason explains a skipped job.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipNoFormatSelected  SkipReason = "no_format_selected"
	SkipUnsupportedFormat SkipReason = "unsupported_format"
)

// Description renders the reason for users.
func (r SkipReason) Description() string {
	switch r {
	case SkipNoFormatSelected:
		return "no target format selected"
	case SkipUnsupportedFormat:
		return "target format not supported for this file"
	default:
		return ""
	}
}

// Result reports the outcome of one job in a run.
type Result struct {
	JobID      string
	SourceName string
	MediaClass formats.MediaClass
	Format     formats.Format
	Outcome    Outcome
	SkipReason SkipReason
	// Artifact is set for succeeded jobs and carries the converted bytes.
	Artifact *queue.Artifact
	Err      error
}

// Summary tallies the outcomes of a run.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

func (s *Summary) add(result Result) {
	switch result.Outcome {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// Total returns the number of results counted.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}
