package queue

import (
	"database/sql"

	"plexconverter/internal/store"
)

// A dangling processing_worker_id resolves to no worker through the join.
const jobSelect = `SELECT q.id, q.file_name, q.file_path, q.file_size, q.last_modified, q.scan_date,
       q.storage_location, q.video_codec, q.resolution, q.duration, q.bit_rate, q.audio_codec,
       q.audio_channels, q.sample_rate, q.language, q.container_format, q.original_size,
       q.estimated_size, q.space_saved, q.job_status, q.queue_position, w.worker_id,
       q.creation_date, q.modification_date
FROM conversion_queue q
LEFT JOIN worker_info w ON w.worker_id = q.processing_worker_id`

const listOrder = ` ORDER BY q.queue_position IS NULL, q.queue_position ASC, q.id ASC`

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		lastModified    sql.NullString
		scanDate        sql.NullString
		videoCodec      sql.NullString
		resolution      sql.NullString
		duration        sql.NullFloat64
		bitRate         sql.NullInt64
		audioCodec      sql.NullString
		audioChannels   sql.NullInt64
		sampleRate      sql.NullInt64
		language        sql.NullString
		containerFormat sql.NullString
		estimatedSize   sql.NullInt64
		spaceSaved      sql.NullInt64
		position        sql.NullInt64
		workerID        sql.NullString
		createdAt       string
		updatedAt       string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.FileName,
		&job.FilePath,
		&job.FileSize,
		&lastModified,
		&scanDate,
		&job.StorageLocation,
		&videoCodec,
		&resolution,
		&duration,
		&bitRate,
		&audioCodec,
		&audioChannels,
		&sampleRate,
		&language,
		&containerFormat,
		&job.OriginalSize,
		&estimatedSize,
		&spaceSaved,
		&job.Status,
		&position,
		&workerID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	job.LastModified = lastModified.String
	job.ScanDate = scanDate.String
	job.VideoCodec = videoCodec.String
	job.Resolution = resolution.String
	job.Duration = duration.Float64
	job.BitRate = bitRate.Int64
	job.AudioCodec = audioCodec.String
	job.AudioChannels = audioChannels.Int64
	job.SampleRate = sampleRate.Int64
	job.Language = language.String
	job.ContainerFormat = containerFormat.String
	if estimatedSize.Valid {
		v := estimatedSize.Int64
		job.EstimatedSize = &v
	}
	if spaceSaved.Valid {
		v := spaceSaved.Int64
		job.SpaceSaved = &v
	}
	job.Position = position.Int64
	job.WorkerID = workerID.String
	job.CreatedAt = store.ParseTime(createdAt)
	job.UpdatedAt = store.ParseTime(updatedAt)
	return &job, nil
}
