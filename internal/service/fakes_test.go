package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
	"github.com/contactdeck/be-contacts-admin/pkg/token"
)

// In-memory stores backing the service tests. They mirror the repository
// error contracts: not-found and conflict map to the same apperr codes.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*repository.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[int64]*repository.User{}}
}

func (f *fakeUserStore) add(username, hash, role string) *repository.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &repository.User{
		ID:           f.nextID,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	f.nextID++
	return u
}

func (f *fakeUserStore) Insert(_ context.Context, user *repository.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperr.Conflict("user already exists")
		}
	}
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	f.nextID++
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) FindByUsername(_ context.Context, username string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("user", username)
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperr.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("user", strconv.FormatInt(id, 10))
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) List(_ context.Context) ([]*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*repository.User, 0, len(f.users))
	for i := int64(1); i < f.nextID; i++ {
		if u, ok := f.users[i]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts []repository.LoginAttempt
	failErr  error
}

func (f *fakeAttemptStore) Record(_ context.Context, ip, username string, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, repository.LoginAttempt{
		IPAddress: ip,
		Username:  username,
		Success:   success,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeAttemptStore) CountRecentFailures(_ context.Context, ip string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	count := 0
	for _, a := range f.attempts {
		if a.IPAddress == ip && !a.Success && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	records []*repository.AuditRecord
}

func (f *fakeAuditStore) Insert(_ context.Context, rec *repository.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = int64(len(f.records) + 1)
	rec.CreatedAt = time.Now()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, limit, offset int) ([]*repository.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*repository.AuditRecord, 0)
	for i := len(f.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.records[i])
	}
	return out, nil
}

func tokenIdentity(id int64, username, role string) token.Identity {
	return token.Identity{UserID: id, Username: username, Role: role}
}

// staticIssuer hands out predictable tokens keyed by identity.
type staticIssuer struct {
	mu          sync.Mutex
	issued      map[string]token.Identity
	invalidated []string
}

func newStaticIssuer() *staticIssuer {
	return &staticIssuer{issued: map[string]token.Identity{}}
}

func (i *staticIssuer) Issue(_ context.Context, id token.Identity) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	tok := fmt.Sprintf("tok-%d-%d", id.UserID, len(i.issued))
	i.issued[tok] = id
	return tok, nil
}

func (i *staticIssuer) Verify(_ context.Context, tok string) (token.Identity, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.issued[tok]
	if !ok {
		return token.Identity{}, token.ErrInvalidToken
	}
	return id, nil
}

func (i *staticIssuer) Invalidate(_ context.Context, tok string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.issued, tok)
	i.invalidated = append(i.invalidated, tok)
	return nil
}

type fakeContactStore struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[int64]*repository.Contact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{nextID: 1, contacts: map[int64]*repository.Contact{}}
}

func (f *fakeContactStore) List(_ context.Context) ([]*repository.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*repository.Contact, 0, len(f.contacts))
	for i := int64(1); i < f.nextID; i++ {
		if c, ok := f.contacts[i]; ok {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeContactStore) Insert(_ context.Context, c *repository.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.contacts[c.ID] = c
	f.nextID++
	return nil
}

func (f *fakeContactStore) Update(_ context.Context, id int64, upd *repository.ContactUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
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
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeContactStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contacts[id]; !ok {
		return apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeContactStore) GetByID(_ context.Context, id int64) (*repository.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, apperr.NotFound("contact", strconv.FormatInt(id, 10))
	}
	copied := *c
	return &copied, nil
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings *repository.PageSettings
}

func (f *fakeSettingsStore) Get(_ context.Context) (*repository.PageSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return nil, nil
	}
	copied := *f.settings
	return &copied, nil
}

func (f *fakeSettingsStore) Upsert(_ context.Context, s *repository.PageSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = 1
	s.UpdatedAt = time.Now()
	copied := *s
	f.settings = &copied
	return nil
}

type fakeChatStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextMsgID  int64
	users      map[int64]*repository.ChatUser
	messages   []*repository.ChatMessage
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{nextUserID: 1, nextMsgID: 1, users: map[int64]*repository.ChatUser{}}
}

func (f *fakeChatStore) InsertUser(_ context.Context, u *repository.ChatUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperr.Conflict("username already taken")
		}
	}
	u.ID = f.nextUserID
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	f.nextUserID++
	return nil
}

func (f *fakeChatStore) FindUserByUsername(_ context.Context, username string) (*repository.ChatUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("chat user", username)
}

func (f *fakeChatStore) FindUserByID(_ context.Context, id int64) (*repository.ChatUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("chat user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeChatStore) ListUsers(_ context.Context) ([]*repository.ChatUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*repository.ChatUser, 0, len(f.users))
	for i := int64(1); i < f.nextUserID; i++ {
		if u, ok := f.users[i]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeChatStore) SetBanned(_ context.Context, id int64, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperr.NotFound("chat user", strconv.FormatInt(id, 10))
	}
	u.IsBanned = banned
	return nil
}

func (f *fakeChatStore) InsertMessage(_ context.Context, m *repository.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.nextMsgID
	m.CreatedAt = time.Now()
	if u, ok := f.users[m.UserID]; ok {
		m.Username = u.Username
	}
	f.messages = append(f.messages, m)
	f.nextMsgID++
	return nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, limit int) ([]*repository.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visible := make([]*repository.ChatMessage, 0)
	for _, m := range f.messages {
		if !m.IsRemoved {
			visible = append(visible, m)
		}
	}
	if len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return visible, nil
}

func (f *fakeChatStore) RemoveMessage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			m.IsRemoved = true
			return nil
		}
	}
	return apperr.NotFound("chat message", strconv.FormatInt(id, 10))
}
