package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
)

// AuditRepository owns the append-only admin_actions table.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one admin action record.
func (r *AuditRepository) Insert(ctx context.Context, rec *AuditRecord) error {
	query := `
		INSERT INTO admin_actions (admin_username, action_type, target_type, target_id, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		rec.AdminUsername,
		rec.ActionType,
		rec.TargetType,
		rec.TargetID,
		rec.Details,
		rec.IPAddress,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to insert audit record")
	}

	return nil
}

// List retrieves records newest first with limit/offset pagination.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*AuditRecord, error) {
	query := `
		SELECT id, admin_username, action_type, target_type, target_id, details, ip_address, created_at
		FROM admin_actions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list audit records")
	}
	defer rows.Close()

	records := make([]*AuditRecord, 0)
	for rows.Next() {
		rec := &AuditRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.AdminUsername,
			&rec.ActionType,
			&rec.TargetType,
			&rec.TargetID,
			&rec.Details,
			&rec.IPAddress,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan audit record")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list audit records")
	}

	return records, nil
}
