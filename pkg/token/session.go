package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Session is one persisted opaque-token row.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Role      string
	ExpiresAt time.Time
}

// SessionStore persists opaque session tokens. The token package owns the
// session rows exclusively; no other component reads or writes them.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// SessionIssuer issues opaque random tokens whose validity is decided solely
// by a store lookup. Expiry is fixed at issue time; verification does not
// slide it.
type SessionIssuer struct {
	store SessionStore
	ttl   time.Duration
}

func NewSessionIssuer(store SessionStore, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{store: store, ttl: ttl}
}

// Issue generates a high-entropy random token and persists it with the
// owning user id and expiry.
func (s *SessionIssuer) Issue(ctx context.Context, id Identity) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	tok := base64.URLEncoding.EncodeToString(b)

	sess := &Session{
		Token:     tok,
		UserID:    id.UserID,
		Username:  id.Username,
		Role:      id.Role,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return tok, nil
}

// Verify looks the token up and checks the stored expiry. Absent rows,
// storage failures and expired sessions all fail closed as ErrInvalidToken.
func (s *SessionIssuer) Verify(ctx context.Context, tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	sess, err := s.store.GetByToken(ctx, tokenString)
	if err != nil || sess == nil {
		return Identity{}, ErrInvalidToken
	}
	if time.Now().After(sess.ExpiresAt) {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: sess.UserID, Username: sess.Username, Role: sess.Role}, nil
}

// Invalidate deletes the session row, ending the session immediately.
func (s *SessionIssuer) Invalidate(ctx context.Context, tokenString string) error {
	return s.store.Delete(ctx, tokenString)
}

var _ Issuer = (*SessionIssuer)(nil)
