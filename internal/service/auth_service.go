package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/config"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/pkg/password"
	"github.com/contactdeck/be-contacts-admin/pkg/token"
)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*repository.User, error)
	FindByUsername(ctx context.Context, username string) (*repository.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// AttemptStore records login attempts and answers failure counts.
type AttemptStore interface {
	Record(ctx context.Context, ip, username string, success bool) error
	CountRecentFailures(ctx context.Context, ip string, since time.Time) (int, error)
}

// tokenInvalidator is implemented by the opaque-session issuer; the signed
// issuer has nothing to invalidate.
type tokenInvalidator interface {
	Invalidate(ctx context.Context, tok string) error
}

// AuthService authenticates admin users and verifies their tokens.
type AuthService struct {
	users    UserStore
	attempts AttemptStore
	issuer   token.Issuer
	cfg      *config.Config
	log      zerolog.Logger

	// Seams for tests; production uses the package defaults.
	verify func(plain, encoded string) (bool, error)
	sleep  func(d time.Duration)
}

func NewAuthService(users UserStore, attempts AttemptStore, issuer token.Issuer, cfg *config.Config, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		attempts: attempts,
		issuer:   issuer,
		cfg:      cfg,
		log:      log,
		verify:   password.Verify,
		sleep:    time.Sleep,
	}
}

type LoginRequest struct {
	Username  string
	Password  string
	IPAddress string
}

type LoginResponse struct {
	Token    string
	UserID   int64
	Username string
	Role     string
}

// Login authenticates an admin user and issues a token.
//
// The throttle is checked before any hash work so a locked-out client cannot
// burn CPU, and every exit path holds the latency floor so response timing
// does not reveal whether the username exists. A successful login does not
// clear earlier failure counts; they simply age out of the window.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	started := time.Now()
	defer func() {
		if elapsed := time.Since(started); elapsed < s.cfg.LoginFloor {
			s.sleep(s.cfg.LoginFloor - elapsed)
		}
	}()

	since := time.Now().Add(-s.cfg.ThrottleWindow)
	failures, err := s.attempts.CountRecentFailures(ctx, req.IPAddress, since)
	if err != nil {
		// Fail closed: if the throttle cannot be consulted, nobody logs in.
		s.log.Error().Err(err).Str("ip", req.IPAddress).Msg("throttle check failed")
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if failures >= s.cfg.ThrottleMax {
		s.log.Warn().Str("ip", req.IPAddress).Int("failures", failures).Msg("login throttled")
		return nil, apperr.RateLimited("too many failed login attempts, try again later")
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeNotFound {
			s.log.Error().Err(err).Msg("user lookup failed")
			return nil, apperr.Unauthorized("invalid credentials")
		}
		s.recordAttempt(ctx, req.IPAddress, req.Username, false)
		return nil, apperr.Unauthorized("invalid credentials")
	}

	ok, err := s.verify(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("password verification failed")
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !ok {
		s.recordAttempt(ctx, req.IPAddress, req.Username, false)
		return nil, apperr.Unauthorized("invalid credentials")
	}

	// Transparent upgrade of legacy digests on the first successful login.
	if password.NeedsRehash(user.PasswordHash) {
		if newHash, err := password.Hash(req.Password); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
				s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to upgrade password hash")
			}
		}
	}

	tok, err := s.issuer.Issue(ctx, token.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("token issue failed")
		return nil, apperr.Internal("failed to issue token", err)
	}

	s.recordAttempt(ctx, req.IPAddress, req.Username, true)
	s.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("login succeeded")

	return &LoginResponse{
		Token:    tok,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

// Authenticate verifies a bearer token and resolves the caller's identity.
// When role refresh is on, the role comes from the user store rather than the
// token, so demotions take effect without waiting for expiry.
func (s *AuthService) Authenticate(ctx context.Context, tok string) (token.Identity, error) {
	if tok == "" {
		return token.Identity{}, apperr.Unauthorized("authentication required")
	}

	id, err := s.issuer.Verify(ctx, tok)
	if err != nil {
		return token.Identity{}, apperr.Unauthorized("invalid or expired token")
	}

	if s.cfg.RefreshRoleOnVerify {
		user, err := s.users.FindByID(ctx, id.UserID)
		if err != nil {
			// A deleted user's outstanding tokens stop working immediately.
			return token.Identity{}, apperr.Unauthorized("invalid or expired token")
		}
		id.Username = user.Username
		id.Role = user.Role
	}

	return id, nil
}

type ChangePasswordRequest struct {
	UserID          int64
	CurrentPassword string
	NewPassword     string
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	if len(req.NewPassword) < 6 {
		return apperr.Invalid("new password must be at least 6 characters")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return err
	}

	ok, err := s.verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("password verification failed")
		return apperr.Unauthorized("invalid credentials")
	}
	if !ok {
		return apperr.Unauthorized("current password is incorrect")
	}

	newHash, err := password.Hash(req.NewPassword)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("password changed")
	return nil
}

// Logout invalidates an opaque session token. Signed tokens carry their own
// expiry and cannot be revoked, so logout is a no-op for that scheme.
func (s *AuthService) Logout(ctx context.Context, tok string) error {
	inv, ok := s.issuer.(tokenInvalidator)
	if !ok {
		return nil
	}
	if err := inv.Invalidate(ctx, tok); err != nil {
		return apperr.Internal("failed to invalidate session", err)
	}
	return nil
}

func (s *AuthService) recordAttempt(ctx context.Context, ip, username string, success bool) {
	if err := s.attempts.Record(ctx, ip, username, success); err != nil {
		s.log.Error().Err(err).Str("ip", ip).Msg("failed to record login attempt")
	}
}
