package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
)

// AuditRecord is the outward shape of an audit entry
type AuditRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	ActorRole     string    `json:"actorRole"`
	SystemMessage string    `json:"systemMessage"`
	UserNote      string    `json:"userNote"`
}

// NewAuditRecord projects an entry onto its outward shape
func NewAuditRecord(e *entity.AuditEntry) AuditRecord {
	return AuditRecord{
		Timestamp:     e.Timestamp,
		ActorRole:     e.ActorRole,
		SystemMessage: e.SystemMessage,
		UserNote:      e.UserNote,
	}
}

// HistoryService reads the audit trail of a document
type HistoryService interface {
	// Latest returns the most recent record, or nil when the document has none
	Latest(ctx context.Context, docType entity.DocumentType, docID int64) (*AuditRecord, error)
	// History returns every record, newest first
	History(ctx context.Context, docType entity.DocumentType, docID int64) ([]AuditRecord, error)
	// Entries returns the stored entries, newest first
	Entries(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error)
}

type historyServiceImpl struct {
	audit  port.AuditRepository
	logger Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(audit port.AuditRepository, logger Logger) HistoryService {
	if logger == nil {
		logger = noopLogger{}
	}
	return &historyServiceImpl{audit: audit, logger: logger}
}

func (s *historyServiceImpl) Latest(ctx context.Context, docType entity.DocumentType, docID int64) (*AuditRecord, error) {
	entry, err := s.audit.Latest(ctx, docType, docID)
	if err != nil {
		s.logger.Error("Failed to read latest audit entry", "error", err, "document_type", docType, "document_id", docID)
		return nil, fmt.Errorf("latest audit entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	record := NewAuditRecord(entry)
	return &record, nil
}

func (s *historyServiceImpl) History(ctx context.Context, docType entity.DocumentType, docID int64) ([]AuditRecord, error) {
	entries, err := s.Entries(ctx, docType, docID)
	if err != nil {
		return nil, err
	}
	records := make([]AuditRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, NewAuditRecord(e))
	}
	return records, nil
}

func (s *historyServiceImpl) Entries(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error) {
	entries, err := s.audit.History(ctx, docType, docID)
	if err != nil {
		s.logger.Error("Failed to read audit history", "error", err, "document_type", docType, "document_id", docID)
		return nil, fmt.Errorf("audit history: %w", err)
	}
	return entries, nil
}
