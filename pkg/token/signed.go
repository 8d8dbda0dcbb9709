package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed-claims token payload.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SignedIssuer issues self-contained HS256 tokens. Validity is determined
// purely by the signature and the expiry claim; no storage is involved, so
// repeated verification has no side effects.
type SignedIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewSignedIssuer creates a signed-claims issuer. The lifetime is a policy
// decision of the deployment context (hours for the admin panel, weeks for
// chat logins).
func NewSignedIssuer(secret []byte, ttl time.Duration, issuer string) *SignedIssuer {
	return &SignedIssuer{secret: secret, ttl: ttl, issuer: issuer}
}

// Issue serializes the identity with issued-at and expiry claims and signs
// the payload with the server secret.
func (s *SignedIssuer) Issue(_ context.Context, id Identity) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify recomputes the signature over the received payload and checks the
// expiry and issuer. Malformed, tampered and expired tokens all return
// ErrInvalidToken. The issuer claim is enforced so tokens from one deployment
// context (admin panel vs chat) cannot cross over even with a shared secret.
func (s *SignedIssuer) Verify(_ context.Context, tokenString string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

var _ Issuer = (*SignedIssuer)(nil)
