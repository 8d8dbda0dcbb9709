package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
)

// ChatRepository owns the chat_users and chat_messages tables.
type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// InsertUser creates a chat account and fills in its id.
func (r *ChatRepository) InsertUser(ctx context.Context, u *ChatUser) error {
	query := `
		INSERT INTO chat_users (username, password_hash, telegram_username)
		VALUES ($1, $2, $3)
		RETURNING id, is_banned, created_at
	`

	err := r.db.QueryRow(ctx, query, u.Username, u.PasswordHash, u.TelegramUsername).
		Scan(&u.ID, &u.IsBanned, &u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict("username already taken")
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to create chat user")
	}

	return nil
}

// FindUserByUsername retrieves a chat account by its username.
func (r *ChatRepository) FindUserByUsername(ctx context.Context, username string) (*ChatUser, error) {
	u := &ChatUser{}

	query := `
		SELECT id, username, password_hash, telegram_username, is_banned, created_at
		FROM chat_users
		WHERE username = $1
	`

	err := r.db.QueryRow(ctx, query, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TelegramUsername, &u.IsBanned, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("chat user", username)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get chat user")
	}

	return u, nil
}

// FindUserByID retrieves a chat account by id.
func (r *ChatRepository) FindUserByID(ctx context.Context, id int64) (*ChatUser, error) {
	u := &ChatUser{}

	query := `
		SELECT id, username, password_hash, telegram_username, is_banned, created_at
		FROM chat_users
		WHERE id = $1
	`

	err := r.db.QueryRow(ctx, query, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TelegramUsername, &u.IsBanned, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("chat user", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to get chat user")
	}

	return u, nil
}

// ListUsers retrieves all chat accounts ordered by id.
func (r *ChatRepository) ListUsers(ctx context.Context) ([]*ChatUser, error) {
	query := `
		SELECT id, username, password_hash, telegram_username, is_banned, created_at
		FROM chat_users
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list chat users")
	}
	defer rows.Close()

	users := make([]*ChatUser, 0)
	for rows.Next() {
		u := &ChatUser{}
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TelegramUsername, &u.IsBanned, &u.CreatedAt); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan chat user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list chat users")
	}

	return users, nil
}

// SetBanned flips the ban flag on a chat account.
func (r *ChatRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	query := `UPDATE chat_users SET is_banned = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, banned)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to update ban flag")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("chat user", strconv.FormatInt(id, 10))
	}

	return nil
}

// InsertMessage appends a chat message and fills in its id.
func (r *ChatRepository) InsertMessage(ctx context.Context, m *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (user_id, message)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, m.UserID, m.Message).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to insert chat message")
	}

	return nil
}

// ListMessages retrieves the latest visible messages in chronological order,
// joined with the sender's current username.
func (r *ChatRepository) ListMessages(ctx context.Context, limit int) ([]*ChatMessage, error) {
	query := `
		SELECT m.id, m.user_id, u.username, m.message, m.is_removed, m.created_at
		FROM chat_messages m
		JOIN chat_users u ON u.id = m.user_id
		WHERE m.is_removed = false
		ORDER BY m.created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list chat messages")
	}
	defer rows.Close()

	messages := make([]*ChatMessage, 0)
	for rows.Next() {
		m := &ChatMessage{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Message, &m.IsRemoved, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to scan chat message")
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to list chat messages")
	}

	// Query returns newest first; flip to chronological for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// RemoveMessage soft-deletes a chat message.
func (r *ChatRepository) RemoveMessage(ctx context.Context, id int64) error {
	query := `UPDATE chat_messages SET is_removed = true WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to remove chat message")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("chat message", strconv.FormatInt(id, 10))
	}

	return nil
}
