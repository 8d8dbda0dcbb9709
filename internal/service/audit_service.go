package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/contactdeck/be-contacts-admin/internal/repository"
)

// AuditStore persists admin action records.
type AuditStore interface {
	Insert(ctx context.Context, rec *repository.AuditRecord) error
	List(ctx context.Context, limit, offset int) ([]*repository.AuditRecord, error)
}

const (
	auditListDefaultLimit = 50
	auditListMaxLimit     = 200
)

// AuditService records admin actions. Recording is best effort: a failed
// write is logged and never fails the action it describes.
type AuditService struct {
	store AuditStore
	log   zerolog.Logger
}

func NewAuditService(store AuditStore, log zerolog.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// Record appends one audit entry.
func (s *AuditService) Record(ctx context.Context, rec *repository.AuditRecord) {
	if err := s.store.Insert(ctx, rec); err != nil {
		s.log.Error().Err(err).
			Str("action", rec.ActionType).
			Str("admin", rec.AdminUsername).
			Msg("failed to record admin action")
	}
}

// List retrieves audit entries newest first.
func (s *AuditService) List(ctx context.Context, limit, offset int) ([]*repository.AuditRecord, error) {
	if limit <= 0 {
		limit = auditListDefaultLimit
	}
	if limit > auditListMaxLimit {
		limit = auditListMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}
