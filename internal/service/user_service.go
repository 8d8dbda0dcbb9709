package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/authz"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/pkg/password"
)

// UserAdminStore is the slice of the user repository the admin management
// service needs.
type UserAdminStore interface {
	Insert(ctx context.Context, user *repository.User) error
	FindByID(ctx context.Context, id int64) (*repository.User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*repository.User, error)
}

// UserService manages admin panel accounts.
type UserService struct {
	users UserAdminStore
	audit *AuditService
	log   zerolog.Logger
}

func NewUserService(users UserAdminStore, audit *AuditService, log zerolog.Logger) *UserService {
	return &UserService{users: users, audit: audit, log: log}
}

// UserInfo is an admin account with the hash stripped.
type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func toUserInfo(u *repository.User) *UserInfo {
	return &UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// List retrieves all admin accounts.
func (s *UserService) List(ctx context.Context) ([]*UserInfo, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, toUserInfo(u))
	}
	return infos, nil
}

type CreateUserRequest struct {
	Username      string
	Password      string
	Role          string
	ActorUsername string
	IPAddress     string
}

// Create adds an admin account. Duplicate usernames surface as a conflict.
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	// Limits count characters, not bytes, so non-ASCII names are sized fairly.
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return nil, apperr.Invalid("username must be 3-50 characters")
	}
	if len(req.Password) < 6 {
		return nil, apperr.Invalid("password must be at least 6 characters")
	}
	role := authz.Role(req.Role)
	if role == "" {
		role = authz.RoleAdmin
	}
	if !role.Valid() {
		return nil, apperr.Invalid("unknown role")
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := &repository.User{
		Username:     username,
		PasswordHash: hash,
		Role:         string(role),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "user_create",
		TargetType:    "user",
		TargetID:      strconv.FormatInt(user.ID, 10),
		Details:       "created " + user.Username + " (" + user.Role + ")",
		IPAddress:     req.IPAddress,
	})
	s.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("admin user created")

	return toUserInfo(user), nil
}

type DeleteUserRequest struct {
	UserID        int64
	ActorUsername string
	IPAddress     string
}

// Delete removes an admin account. Superadmin records can never be deleted,
// regardless of who asks.
func (s *UserService) Delete(ctx context.Context, req *DeleteUserRequest) error {
	target, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return err
	}

	if err := authz.CheckDeleteUser(authz.Role(target.Role)); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, req.UserID); err != nil {
		return err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "user_delete",
		TargetType:    "user",
		TargetID:      strconv.FormatInt(req.UserID, 10),
		Details:       "deleted " + target.Username,
		IPAddress:     req.IPAddress,
	})
	s.log.Info().Str("username", target.Username).Msg("admin user deleted")

	return nil
}
