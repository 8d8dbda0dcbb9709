package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/apperr"
	"github.com/contactdeck/be-contacts-admin/internal/repository"
)

// ContactStore persists contact cards.
type ContactStore interface {
	List(ctx context.Context) ([]*repository.Contact, error)
	Insert(ctx context.Context, c *repository.Contact) error
	Update(ctx context.Context, id int64, upd *repository.ContactUpdate) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*repository.Contact, error)
}

// SettingsStore persists the single landing page settings row.
type SettingsStore interface {
	Get(ctx context.Context) (*repository.PageSettings, error)
	Upsert(ctx context.Context, s *repository.PageSettings) error
}

// Defaults served before the settings row has ever been saved.
const (
	defaultMainTitle       = "Contacts"
	defaultMainDescription = "Get in touch"
)

// ContentService manages the public landing page: contact cards and page
// settings.
type ContentService struct {
	contacts ContactStore
	settings SettingsStore
	audit    *AuditService
	log      zerolog.Logger
}

func NewContentService(contacts ContactStore, settings SettingsStore, audit *AuditService, log zerolog.Logger) *ContentService {
	return &ContentService{contacts: contacts, settings: settings, audit: audit, log: log}
}

// ListContacts retrieves all contact cards in display order.
func (s *ContentService) ListContacts(ctx context.Context) ([]*repository.Contact, error) {
	return s.contacts.List(ctx)
}

type CreateContactRequest struct {
	Title         string
	Description   string
	TelegramLink  string
	DisplayOrder  int
	ActorUsername string
	IPAddress     string
}

// CreateContact adds a contact card.
func (s *ContentService) CreateContact(ctx context.Context, req *CreateContactRequest) (*repository.Contact, error) {
	if req.Title == "" {
		return nil, apperr.Invalid("title is required")
	}

	c := &repository.Contact{
		Title:        req.Title,
		Description:  req.Description,
		TelegramLink: req.TelegramLink,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.contacts.Insert(ctx, c); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "contact_create",
		TargetType:    "contact",
		TargetID:      strconv.FormatInt(c.ID, 10),
		Details:       c.Title,
		IPAddress:     req.IPAddress,
	})

	return c, nil
}

type UpdateContactRequest struct {
	ContactID     int64
	Update        repository.ContactUpdate
	ActorUsername string
	IPAddress     string
}

// UpdateContact applies a partial update to a contact card.
func (s *ContentService) UpdateContact(ctx context.Context, req *UpdateContactRequest) (*repository.Contact, error) {
	if req.Update.Title != nil && *req.Update.Title == "" {
		return nil, apperr.Invalid("title cannot be empty")
	}

	if err := s.contacts.Update(ctx, req.ContactID, &req.Update); err != nil {
		return nil, err
	}

	c, err := s.contacts.GetByID(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "contact_update",
		TargetType:    "contact",
		TargetID:      strconv.FormatInt(req.ContactID, 10),
		Details:       c.Title,
		IPAddress:     req.IPAddress,
	})

	return c, nil
}

type DeleteContactRequest struct {
	ContactID     int64
	ActorUsername string
	IPAddress     string
}

// DeleteContact removes a contact card.
func (s *ContentService) DeleteContact(ctx context.Context, req *DeleteContactRequest) error {
	if err := s.contacts.Delete(ctx, req.ContactID); err != nil {
		return err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "contact_delete",
		TargetType:    "contact",
		TargetID:      strconv.FormatInt(req.ContactID, 10),
		IPAddress:     req.IPAddress,
	})

	return nil
}

// GetSettings retrieves page settings, substituting defaults before the
// first save.
func (s *ContentService) GetSettings(ctx context.Context) (*repository.PageSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return &repository.PageSettings{
			MainTitle:       defaultMainTitle,
			MainDescription: defaultMainDescription,
		}, nil
	}
	return settings, nil
}

type UpdateSettingsRequest struct {
	MainTitle          string
	MainDescription    string
	BackgroundImageURL *string
	ActorUsername      string
	IPAddress          string
}

// UpdateSettings saves the page settings row, creating it on first save.
func (s *ContentService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*repository.PageSettings, error) {
	if req.MainTitle == "" {
		return nil, apperr.Invalid("main_title is required")
	}

	settings := &repository.PageSettings{
		MainTitle:          req.MainTitle,
		MainDescription:    req.MainDescription,
		BackgroundImageURL: req.BackgroundImageURL,
	}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &repository.AuditRecord{
		AdminUsername: req.ActorUsername,
		ActionType:    "settings_update",
		TargetType:    "page_settings",
		Details:       req.MainTitle,
		IPAddress:     req.IPAddress,
	})

	return settings, nil
}
