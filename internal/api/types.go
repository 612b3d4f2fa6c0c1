package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a queue job in a transport-friendly format.
type JobView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Size           int64    `json:"size"`
	SizeLabel      string   `json:"sizeLabel"`
	MediaType      string   `json:"mediaType"`
	MediaClass     string   `json:"mediaClass"`
	Status         string   `json:"status"`
	TargetFormat   string   `json:"targetFormat,omitempty"`
	AllowedTargets []string `json:"allowedTargets"`
	Error          string   `json:"error,omitempty"`
	ArtifactName   string   `json:"artifactName,omitempty"`
	ArtifactSize   int64    `json:"artifactSize,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	AddedLabel     string   `json:"addedLabel,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// ResultView describes one runner outcome.
type ResultView struct {
	JobID        string `json:"jobId"`
	Name         string `json:"name"`
	MediaClass   string `json:"mediaClass"`
	Format       string `json:"format,omitempty"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason,omitempty"`
	ArtifactName string `json:"artifactName,omitempty"`
	ArtifactSize int64  `json:"artifactSize,omitempty"`
	SavedPath    string `json:"savedPath,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RejectionView describes a file the intake refused.
type RejectionView struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// AddFilesResult reports the outcome of a drop.
type AddFilesResult struct {
	Jobs     []JobView       `json:"jobs"`
	Rejected []RejectionView `json:"rejected"`
}

// FormatsView lists the legal targets of one media class.
type FormatsView struct {
	MediaClass string   `json:"mediaClass"`
	Targets    []string `json:"targets"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// RunResponse wraps the results of a run.
type RunResponse struct {
	Results   []ResultView    `json:"results"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Rejected  []RejectionView `json:"rejected,omitempty"`
}
