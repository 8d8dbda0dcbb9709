package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
)

// AttemptRepository owns the append-only login_attempts table. Rows are
// never updated or deleted; the table only answers aggregate counts.
type AttemptRepository struct {
	db *pgxpool.Pool
}

func NewAttemptRepository(db *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record appends one attempt, success or failure.
func (r *AttemptRepository) Record(ctx context.Context, ip, username string, success bool) error {
	query := `
		INSERT INTO login_attempts (ip_address, username, success)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Exec(ctx, query, ip, username, success)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to record login attempt")
	}

	return nil
}

// CountRecentFailures counts failed attempts from one client address since
// the given instant. Read-committed isolation is enough: concurrent failures
// each commit their own row and are all visible to the next count.
func (r *AttemptRepository) CountRecentFailures(ctx context.Context, ip string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE ip_address = $1 AND success = false AND created_at >= $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, ip, since).Scan(&count); err != nil {
		return 0, apperr.Wrap(err, apperr.CodeInternal, "failed to count login failures")
	}

	return count, nil
}
