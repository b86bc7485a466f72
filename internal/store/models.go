package store

import "time"

// JobStatus tracks a job through its pipeline stages. Jobs only move
// forward; completed and failed are terminal.
type JobStatus string

const (
	StatusUploaded           JobStatus = "uploaded"
	StatusDownloading        JobStatus = "downloading"
	StatusTranscribing       JobStatus = "transcribing"
	StatusGeneratingCaptions JobStatus = "generating_captions"
	StatusEmbeddingSubtitles JobStatus = "embedding_subtitles"
	StatusCompleted          JobStatus = "completed"
	StatusFailed             JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one captioning job's registry record.
type Job struct {
	ID            string
	Username      string
	Filename      string
	Status        JobStatus
	Error         string
	DownloadURL   string
	Transcription string
	Duration      string
	Favorite      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
