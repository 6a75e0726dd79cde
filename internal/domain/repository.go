package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GrantPoints(ctx context.Context, id int64, amount int64) (int64, error)
}

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetForOwner(ctx context.Context, jobID string, ownerUserID int64) (*GenerationJob, error)
	// Complete settles a pending job and deducts its cost. It returns
	// ErrDuplicateOperation when the job is already terminal.
	Complete(ctx context.Context, jobID, videoURL string) (*Settlement, error)
	// Fail settles a pending job without charge. It returns
	// ErrDuplicateOperation when the job is already terminal.
	Fail(ctx context.Context, jobID, message string) (*Settlement, error)
	ListStale(ctx context.Context, olderThan time.Duration, limit int) ([]GenerationJob, error)
}

// EncryptedPreferences is the at-rest form of Preferences.
type EncryptedPreferences struct {
	UserID         int64
	WebhookURL     string
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
	UpdatedAt      time.Time
}

// PreferenceRepository persists encrypted preferences.
type PreferenceRepository interface {
	Get(ctx context.Context, userID int64) (*EncryptedPreferences, error)
	Upsert(ctx context.Context, prefs EncryptedPreferences) error
}
