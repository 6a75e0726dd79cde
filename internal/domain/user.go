package domain

import (
	"strings"
	"time"
)

// User represents an authenticated store owner.
type User struct {
	ID            int64
	Email         string
	Name          string
	PointsBalance int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanAfford reports whether the balance covers cost.
func (u User) CanAfford(cost int64) bool {
	return u.PointsBalance >= cost
}

// Preferences holds per-user integration settings, decrypted.
type Preferences struct {
	UserID         int64
	WebhookURL     string
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
	UpdatedAt      time.Time
}

// GenerationEnabled reports whether a generation webhook is configured.
func (p Preferences) GenerationEnabled() bool {
	return strings.TrimSpace(p.WebhookURL) != ""
}

// PublishingEnabled reports whether store credentials are complete.
func (p Preferences) PublishingEnabled() bool {
	return strings.TrimSpace(p.StoreURL) != "" &&
		strings.TrimSpace(p.ConsumerKey) != "" &&
		strings.TrimSpace(p.ConsumerSecret) != ""
}
