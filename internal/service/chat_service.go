package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/pkg/password"
	"github.com/contactdeck/be-contacts-admin/pkg/token"
)

// ChatStore persists chat accounts and messages.
type ChatStore interface {
	InsertUser(ctx context.Context, u *repository.ChatUser) error
	FindUserByUsername(ctx context.Context, username string) (*repository.ChatUser, error)
	FindUserByID(ctx context.Context, id int64) (*repository.ChatUser, error)
	ListUsers(ctx context.Context) ([]*repository.ChatUser, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	InsertMessage(ctx context.Context, m *repository.ChatMessage) error
	ListMessages(ctx context.Context, limit int) ([]*repository.ChatMessage, error)
	RemoveMessage(ctx context.Context, id int64) error
}

const (
	chatMessageMaxLen  = 1000
	chatMessagesWindow = 100
)

// ChatService runs the public chat: self-service accounts, messages, and the
// admin-side moderation operations.
type ChatService struct {
	store  ChatStore
	issuer token.Issuer
	audit  *AuditService
	log    zerolog.Logger
}

func NewChatService(store ChatStore, issuer token.Issuer, audit *AuditService, log zerolog.Logger) *ChatService {
	return &ChatService{store: store, issuer: issuer, audit: audit, log: log}
}

type ChatRegisterRequest struct {
	Username         string
	Password         string
	TelegramUsername *string
}

type ChatAuthResponse struct {
	Token    string
	UserID   int64
	Username string
}

// Register creates a chat account and logs it straight in.
func (s *ChatService) Register(ctx context.Context, req *ChatRegisterRequest) (*ChatAuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	// Limits count characters, not bytes, so non-ASCII names are sized fairly.
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return nil, apperr.Invalid("username must be 3-50 characters")
	}
	if len(req.Password) < 6 {
		return nil, apperr.Invalid("password must be at least 6 characters")
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := &repository.ChatUser{
		Username:         username,
		PasswordHash:     hash,
		TelegramUsername: req.TelegramUsername,
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	tok, err := s.issuer.Issue(ctx, token.Identity{UserID: user.ID, Username: user.Username, Role: "chat"})
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}

	s.log.Info().Str("username", user.Username).Msg("chat user registered")

	return &ChatAuthResponse{Token: tok, UserID: user.ID, Username: user.Username}, nil
}

type ChatLoginRequest struct {
	Username string
	Password string
}

// Login authenticates a chat account. Banned accounts are refused even with
// valid credentials.
func (s *ChatService) Login(ctx context.Context, req *ChatLoginRequest) (*ChatAuthResponse, error) {
	user, err := s.store.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	ok, err := password.Verify(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("password verification failed")
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !ok {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	if user.IsBanned {
		return nil, apperr.Forbidden("account is banned")
	}

	tok, err := s.issuer.Issue(ctx, token.Identity{UserID: user.ID, Username: user.Username, Role: "chat"})
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}

	return &ChatAuthResponse{Token: tok, UserID: user.ID, Username: user.Username}, nil
}

// Authenticate verifies a chat token and re-checks the ban flag so a ban
// takes effect on the next request, not at token expiry.
func (s *ChatService) Authenticate(ctx context.Context, tok string) (*repository.ChatUser, error) {
	if tok == "" {
		return nil, apperr.Unauthorized("authentication required")
	}

	id, err := s.issuer.Verify(ctx, tok)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	user, err := s.store.FindUserByID(ctx, id.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if user.IsBanned {
		return nil, apperr.Forbidden("account is banned")
	}

	return user, nil
}

// ListMessages retrieves the latest visible messages in chronological order.
func (s *ChatService) ListMessages(ctx context.Context) ([]*repository.ChatMessage, error) {
	return s.store.ListMessages(ctx, chatMessagesWindow)
}

type PostMessageRequest struct {
	UserID  int64
	Message string
}

// PostMessage appends a chat message from an authenticated account.
func (s *ChatService) PostMessage(ctx context.Context, req *PostMessageRequest) (*repository.ChatMessage, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, apperr.Invalid("message is required")
	}
	if utf8.RuneCountInString(text) > chatMessageMaxLen {
		return nil, apperr.Invalid("message must be at most 1000 characters")
	}

	m := &repository.ChatMessage{UserID: req.UserID, Message: text}
	if err := s.store.InsertMessage(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// ListUsers retrieves all chat accounts for the admin panel.
func (s *ChatService) ListUsers(ctx context.Context) ([]*repository.ChatUser, error) {
	return s.store.ListUsers(ctx)
}

type ModerateUserRequest struct {
	ChatUserID    int64
	Banned        bool
	ActorUsername string
	IPAddress     string
}

// SetBanned bans or unbans a chat account.
func (s *ChatService) SetBanned(ctx context.Context, req *ModerateUserRequest) error {
	if err := s.store.SetBanned(ctx, req.ChatUserID, req.Banned); err != nil {
		return err
	}

	action := "chat_user_ban"
	if !req.Banned {
		action = "chat_user_unban"
	}
	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    action,
		TargetType:    "chat_user",
		TargetID:      strconv.FormatInt(req.ChatUserID, 10),
		IPAddress:     req.IPAddress,
	})

	return nil
}

type RemoveMessageRequest struct {
	MessageID     int64
	ActorUsername string
	IPAddress     string
}

// RemoveMessage hides a chat message from listings.
func (s *ChatService) RemoveMessage(ctx context.Context, req *RemoveMessageRequest) error {
	if err := s.store.RemoveMessage(ctx, req.MessageID); err != nil {
		return err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "chat_message_remove",
		TargetType:    "chat_message",
		TargetID:      strconv.FormatInt(req.MessageID, 10),
		IPAddress:     req.IPAddress,
	})

	return nil
}
