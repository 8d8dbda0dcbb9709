package repository

import "time"

// User is an admin-panel account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// LoginAttempt is one append-only audit row of a login try. Rows are only
// read back in aggregate (failure counts per client address).
type LoginAttempt struct {
	ID        int64
	IPAddress string
	Username  string
	Success   bool
	CreatedAt time.Time
}

// AuditRecord is one append-only admin action entry.
type AuditRecord struct {
	ID            int64
	AdminUsername string
	ActionType    string
	TargetType    string
	TargetID      string
	Details       string
	IPAddress     string
	CreatedAt     time.Time
}

// Contact is a public contact card.
type Contact struct {
	ID           int64
	Title        string
	Description  string
	TelegramLink string
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PageSettings is the single-row landing page configuration.
type PageSettings struct {
	ID                 int64
	MainTitle          string
	MainDescription    string
	BackgroundImageURL *string
	UpdatedAt          time.Time
}

// ChatUser is a chat account, separate from admin users.
type ChatUser struct {
	ID               int64
	Username         string
	PasswordHash     string
	TelegramUsername *string
	IsBanned         bool
	CreatedAt        time.Time
}

// ChatMessage is one chat message; removed messages stay in storage but are
// filtered from listings.
type ChatMessage struct {
	ID        int64
	UserID    int64
	Username  string
	Message   string
	IsRemoved bool
	CreatedAt time.Time
}
