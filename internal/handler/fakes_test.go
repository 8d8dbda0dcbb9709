package handler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
)

// In-memory stores behind the real services, so handler tests exercise the
// full request path without a database.

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*repository.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: map[int64]*repository.User{}}
}

func (m *memUserStore) add(username, hash, role string) *repository.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &repository.User{ID: m.nextID, Username: username, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	m.users[u.ID] = u
	m.nextID++
	return u
}

func (m *memUserStore) Insert(_ context.Context, user *repository.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperr.Conflict("user already exists")
		}
	}
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	m.nextID++
	return nil
}

func (m *memUserStore) FindByID(_ context.Context, id int64) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (m *memUserStore) FindByUsername(_ context.Context, username string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("user", username)
}

func (m *memUserStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user", strconv.FormatInt(id, 10))
	}
	delete(m.users, id)
	return nil
}

func (m *memUserStore) List(_ context.Context) ([]*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.User, 0, len(m.users))
	for i := int64(1); i < m.nextID; i++ {
		if u, ok := m.users[i]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memAttemptStore struct {
	mu       sync.Mutex
	attempts []repository.LoginAttempt
}

func (m *memAttemptStore) Record(_ context.Context, ip, username string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, repository.LoginAttempt{IPAddress: ip, Username: username, Success: success, CreatedAt: time.Now()})
	return nil
}

func (m *memAttemptStore) CountRecentFailures(_ context.Context, ip string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.attempts {
		if a.IPAddress == ip && !a.Success && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type memAuditStore struct {
	mu      sync.Mutex
	records []*repository.AuditRecord
}

func (m *memAuditStore) Insert(_ context.Context, rec *repository.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.records) + 1)
	rec.CreatedAt = time.Now()
	m.records = append(m.records, rec)
	return nil
}

func (m *memAuditStore) List(_ context.Context, limit, offset int) ([]*repository.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.AuditRecord, 0)
	for i := len(m.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

type memContactStore struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[int64]*repository.Contact
}

func newMemContactStore() *memContactStore {
	return &memContactStore{nextID: 1, contacts: map[int64]*repository.Contact{}}
}

func (m *memContactStore) List(_ context.Context) ([]*repository.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.Contact, 0, len(m.contacts))
	for i := int64(1); i < m.nextID; i++ {
		if c, ok := m.contacts[i]; ok {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memContactStore) Insert(_ context.Context, c *repository.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.contacts[c.ID] = c
	m.nextID++
	return nil
}

func (m *memContactStore) Update(_ context.Context, id int64, upd *repository.ContactUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.TelegramLink != nil {
		c.TelegramLink = *upd.TelegramLink
	}
	if upd.DisplayOrder != nil {
		c.DisplayOrder = *upd.DisplayOrder
	}
	return nil
}

func (m *memContactStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[id]; !ok {
		return apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}
	delete(m.contacts, id)
	return nil
}

func (m *memContactStore) GetByID(_ context.Context, id int64) (*repository.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}
	copied := *c
	return &copied, nil
}

type memSettingsStore struct {
	mu       sync.Mutex
	settings *repository.PageSettings
}

func (m *memSettingsStore) Get(_ context.Context) (*repository.PageSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, nil
	}
	copied := *m.settings
	return &copied, nil
}

func (m *memSettingsStore) Upsert(_ context.Context, s *repository.PageSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = 1
	s.UpdatedAt = time.Now()
	copied := *s
	m.settings = &copied
	return nil
}

type memChatStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextMsgID  int64
	users      map[int64]*repository.ChatUser
	messages   []*repository.ChatMessage
}

func newMemChatStore() *memChatStore {
	return &memChatStore{nextUserID: 1, nextMsgID: 1, users: map[int64]*repository.ChatUser{}}
}

func (m *memChatStore) InsertUser(_ context.Context, u *repository.ChatUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return apperr.Conflict("username already taken")
		}
	}
	u.ID = m.nextUserID
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	m.nextUserID++
	return nil
}

func (m *memChatStore) FindUserByUsername(_ context.Context, username string) (*repository.ChatUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("chat user", username)
}

func (m *memChatStore) FindUserByID(_ context.Context, id int64) (*repository.ChatUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("chat user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (m *memChatStore) ListUsers(_ context.Context) ([]*repository.ChatUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.ChatUser, 0, len(m.users))
	for i := int64(1); i < m.nextUserID; i++ {
		if u, ok := m.users[i]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memChatStore) SetBanned(_ context.Context, id int64, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("chat user", strconv.FormatInt(id, 10))
	}
	u.IsBanned = banned
	return nil
}

func (m *memChatStore) InsertMessage(_ context.Context, msg *repository.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextMsgID
	msg.CreatedAt = time.Now()
	if u, ok := m.users[msg.UserID]; ok {
		msg.Username = u.Username
	}
	m.messages = append(m.messages, msg)
	m.nextMsgID++
	return nil
}

func (m *memChatStore) ListMessages(_ context.Context, limit int) ([]*repository.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	visible := make([]*repository.ChatMessage, 0)
	for _, msg := range m.messages {
		if !msg.IsRemoved {
			visible = append(visible, msg)
		}
	}
	if len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return visible, nil
}

func (m *memChatStore) RemoveMessage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.IsRemoved = true
			return nil
		}
	}
	return apperr.NotFound("chat message", strconv.FormatInt(id, 10))
}
