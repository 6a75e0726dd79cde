package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageBytes bounds a stored failure message so the job message that
// announces it stays well inside the Postgres NOTIFY payload limit.
const MaxMessageBytes = 1024

// TruncateUTF8 shortens s to at most limit bytes without splitting a rune.
func TruncateUTF8(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ParseJobStatus normalizes a status reported by the backend or N8N.
func ParseJobStatus(raw string) (JobStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "processing", "queued", "running":
		return JobStatusPending, true
	case "completed", "complete", "succeeded", "success":
		return JobStatusCompleted, true
	case "failed", "failure", "error":
		return JobStatusFailed, true
	default:
		return "", false
	}
}

// GenerationJob is one external video generation request.
type GenerationJob struct {
	ID             string
	OwnerUserID    int64
	Status         JobStatus
	ProductID      string
	ProductName    string
	VideoURL       string
	ErrorMessage   string
	PointsCost     int64
	PointsDeducted int64
	SubmittedAt    time.Time
	UpdatedAt      time.Time
}

// Settlement is the outcome of moving a job to a terminal status.
type Settlement struct {
	JobID          string
	OwnerUserID    int64
	Status         JobStatus
	VideoURL       string
	Message        string
	NewBalance     int64
	PointsDeducted int64
}
