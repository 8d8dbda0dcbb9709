package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/pkg/token"
)

// SessionRepository owns the sessions table and backs the opaque token
// variant. It implements token.SessionStore.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session row.
func (r *SessionRepository) Create(ctx context.Context, s *token.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query, uuid.New().String(), s.UserID, s.Token, s.ExpiresAt)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to create session")
	}

	return nil
}

// GetByToken looks up a session and the owning user's current username and
// role, so a role change takes effect on the next verification.
func (r *SessionRepository) GetByToken(ctx context.Context, tok string) (*token.Session, error) {
	s := &token.Session{Token: tok}

	query := `
		SELECT s.user_id, s.expires_at, u.username, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
	`

	err := r.db.QueryRow(ctx, query, tok).Scan(&s.UserID, &s.ExpiresAt, &s.Username, &s.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthorized("session not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get session")
	}

	return s, nil
}

// Delete removes a session row, invalidating the token.
func (r *SessionRepository) Delete(ctx context.Context, tok string) error {
	query := `DELETE FROM sessions WHERE token = $1`

	_, err := r.db.Exec(ctx, query, tok)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to delete session")
	}

	return nil
}

// DeleteExpired removes sessions past their expiry. Called opportunistically
// at startup; there is no background sweeper.
func (r *SessionRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM sessions WHERE expires_at < $1`

	_, err := r.db.Exec(ctx, query, time.Now())
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to delete expired sessions")
	}

	return nil
}

var _ token.SessionStore = (*SessionRepository)(nil)
