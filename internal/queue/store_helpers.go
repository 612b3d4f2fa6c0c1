package queue

import (
	"database/sql"
	"errors"
	"time"

	"convertify/internal/formats"
)

const jobColumns = "id, source_name, source_size, source_media_type, media_class, target_format, status, artifact_name, artifact_mime_type, artifact_size, error_detail, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		sourceName   string
		sourceSize   int64
		mediaType    sql.NullString
		mediaClass   sql.NullString
		targetFormat sql.NullString
		statusStr    string
		artifactName sql.NullString
		artifactMIME sql.NullString
		artifactSize sql.NullInt64
		errorDetail  sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&sourceName,
		&sourceSize,
		&mediaType,
		&mediaClass,
		&targetFormat,
		&statusStr,
		&artifactName,
		&artifactMIME,
		&artifactSize,
		&errorDetail,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SourceName:      sourceName,
		SourceSize:      sourceSize,
		SourceMediaType: mediaType.String,
		MediaClass:      formats.MediaClass(mediaClass.String),
		TargetFormat:    formats.Format(targetFormat.String),
		Status:          Status(statusStr),
		ErrorDetail:     errorDetail.String,
	}
	if artifactName.Valid {
		job.Artifact = &Artifact{
			Name:     artifactName.String,
			MIMEType: artifactMIME.String,
			Size:     artifactSize.Int64,
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
