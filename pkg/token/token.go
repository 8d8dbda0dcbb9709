// Package token issues and verifies bearer tokens. Two variants implement
// the same Issuer capability: a self-contained signed-claims token (HS256)
// and an opaque random token backed by a session table. Verification
// failures of any kind collapse to ErrInvalidToken so callers cannot tell
// which check rejected the token.
package token

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified subject carried by a token.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

// Issuer creates and validates bearer tokens for one deployment context.
type Issuer interface {
	Issue(ctx context.Context, id Identity) (string, error)
	Verify(ctx context.Context, token string) (Identity, error)
}
