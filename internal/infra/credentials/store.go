package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"woovideo/internal/domain"
)

// ErrInvalidURL is returned for webhook or store URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("credentials: url must be absolute http(s)")

// Store reads and writes per-user preferences, encrypting secrets at rest.
type Store struct {
	repo   domain.PreferenceRepository
	cipher *Cipher
}

func NewStore(repo domain.PreferenceRepository, cipher *Cipher) *Store {
	return &Store{repo: repo, cipher: cipher}
}

// Get returns decrypted preferences. A user without a row gets empty preferences.
func (s *Store) Get(ctx context.Context, userID int64) (*domain.Preferences, error) {
	enc, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Preferences{UserID: userID}, nil
		}
		return nil, err
	}
	prefs := &domain.Preferences{UserID: userID, StoreURL: enc.StoreURL, UpdatedAt: enc.UpdatedAt}
	if prefs.WebhookURL, err = s.cipher.Open(enc.WebhookURL); err != nil {
		return nil, fmt.Errorf("decrypt webhook url: %w", err)
	}
	if prefs.ConsumerKey, err = s.cipher.Open(enc.ConsumerKey); err != nil {
		return nil, fmt.Errorf("decrypt consumer key: %w", err)
	}
	if prefs.ConsumerSecret, err = s.cipher.Open(enc.ConsumerSecret); err != nil {
		return nil, fmt.Errorf("decrypt consumer secret: %w", err)
	}
	return prefs, nil
}

// Save validates, encrypts and stores prefs.
func (s *Store) Save(ctx context.Context, prefs domain.Preferences) error {
	prefs.WebhookURL = strings.TrimSpace(prefs.WebhookURL)
	prefs.StoreURL = strings.TrimRight(strings.TrimSpace(prefs.StoreURL), "/")
	if err := validateURL(prefs.WebhookURL); err != nil {
		return err
	}
	if err := validateURL(prefs.StoreURL); err != nil {
		return err
	}

	enc := domain.EncryptedPreferences{UserID: prefs.UserID, StoreURL: prefs.StoreURL}
	var err error
	if enc.WebhookURL, err = s.cipher.Seal(prefs.WebhookURL); err != nil {
		return err
	}
	if enc.ConsumerKey, err = s.cipher.Seal(strings.TrimSpace(prefs.ConsumerKey)); err != nil {
		return err
	}
	if enc.ConsumerSecret, err = s.cipher.Seal(strings.TrimSpace(prefs.ConsumerSecret)); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, enc)
}

func validateURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}
