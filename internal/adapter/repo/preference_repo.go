package repo

import (
	"context"

	"woovideo/internal/domain"
	"woovideo/internal/infra"
	"woovideo/internal/sqlinline"
)

// PreferenceRepositoryPG stores encrypted user preferences.
type PreferenceRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewPreferenceRepository(sql infra.SQLExecutor) *PreferenceRepositoryPG {
	return &PreferenceRepositoryPG{sql: sql}
}

func (r *PreferenceRepositoryPG) Get(ctx context.Context, userID int64) (*domain.EncryptedPreferences, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserPreferences, userID)
	var p domain.EncryptedPreferences
	if err := row.Scan(&p.UserID, &p.WebhookURL, &p.StoreURL, &p.ConsumerKey, &p.ConsumerSecret, &p.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PreferenceRepositoryPG) Upsert(ctx context.Context, p domain.EncryptedPreferences) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertUserPreferences, p.UserID, p.WebhookURL, p.StoreURL, p.ConsumerKey, p.ConsumerSecret)
	return err
}

var _ domain.PreferenceRepository = (*PreferenceRepositoryPG)(nil)
