package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
)

// SettingsRepository owns the single-row page_settings table.
type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the settings row. Returns (nil, nil) when none exists yet;
// the service substitutes defaults.
func (r *SettingsRepository) Get(ctx context.Context) (*PageSettings, error) {
	s := &PageSettings{}

	query := `
		SELECT id, main_title, main_description, background_image_url, updated_at
		FROM page_settings
		ORDER BY id
		LIMIT 1
	`

	err := r.db.QueryRow(ctx, query).
		Scan(&s.ID, &s.MainTitle, &s.MainDescription, &s.BackgroundImageURL, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get page settings")
	}

	return s, nil
}

// Upsert writes the settings row, creating it on first save.
func (r *SettingsRepository) Upsert(ctx context.Context, s *PageSettings) error {
	query := `
		INSERT INTO page_settings (id, main_title, main_description, background_image_url, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET main_title = EXCLUDED.main_title,
		    main_description = EXCLUDED.main_description,
		    background_image_url = EXCLUDED.background_image_url,
		    updated_at = NOW()
		RETURNING id, updated_at
	`

	err := r.db.QueryRow(ctx, query, s.MainTitle, s.MainDescription, s.BackgroundImageURL).
		Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to save page settings")
	}

	return nil
}
