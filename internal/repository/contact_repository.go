package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
)

// ContactRepository owns the contacts table.
type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: db}
}

// List retrieves all contacts ordered for display.
func (r *ContactRepository) List(ctx context.Context) ([]*Contact, error) {
	query := `
		SELECT id, title, description, telegram_link, display_order, created_at, updated_at
		FROM contacts
		ORDER BY display_order ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list contacts")
	}
	defer rows.Close()

	contacts := make([]*Contact, 0)
	for rows.Next() {
		c := &Contact{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.TelegramLink, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan contact")
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list contacts")
	}

	return contacts, nil
}

// Insert creates a new contact and fills in its id.
func (r *ContactRepository) Insert(ctx context.Context, c *Contact) error {
	query := `
		INSERT INTO contacts (title, description, telegram_link, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, c.Title, c.Description, c.TelegramLink, c.DisplayOrder).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to create contact")
	}

	return nil
}

// ContactUpdate carries the fields of a partial update; nil means unchanged.
type ContactUpdate struct {
	Title        *string
	Description  *string
	TelegramLink *string
	DisplayOrder *int
}

// Update applies a partial update, building the SET clause from the fields
// that are present.
func (r *ContactRepository) Update(ctx context.Context, id int64, upd *ContactUpdate) error {
	setClauses := []string{}
	args := []interface{}{}
	argCount := 1

	appendSet := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argCount))
		args = append(args, value)
		argCount++
	}

	if upd.Title != nil {
		appendSet("title", *upd.Title)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.TelegramLink != nil {
		appendSet("telegram_link", *upd.TelegramLink)
	}
	if upd.DisplayOrder != nil {
		appendSet("display_order", *upd.DisplayOrder)
	}

	if len(setClauses) == 0 {
		return apperr.Invalid("no fields to update")
	}

	query := "UPDATE contacts SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += fmt.Sprintf(", updated_at = NOW() WHERE id = $%d", argCount)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to update contact")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}

	return nil
}

// Delete removes a contact.
func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM contacts WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to delete contact")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}

	return nil
}

// GetByID retrieves one contact.
func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*Contact, error) {
	c := &Contact{}

	query := `
		SELECT id, title, description, telegram_link, display_order, created_at, updated_at
		FROM contacts
		WHERE id = $1
	`

	err := r.db.QueryRow(ctx, query, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.TelegramLink, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get contact")
	}

	return c, nil
}
