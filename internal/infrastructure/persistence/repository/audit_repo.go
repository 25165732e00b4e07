package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const auditColumns = `
	id, entry_id, document_type, document_id, timestamp, actor_id, actor_role,
	system_message, user_note`

// AuditRepository implements port.AuditRepository.
// Entries are insert-only; the schema rejects updates and deletes.
type AuditRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlite.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one entry
func (r *AuditRepository) Append(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			entry_id, document_type, document_id, timestamp, actor_id, actor_role,
			system_message, user_note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		e.EntryID,
		string(e.DocumentType),
		e.DocumentID,
		e.Timestamp.UTC(),
		e.ActorID,
		e.ActorRole,
		e.SystemMessage,
		e.UserNote,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("document_type", string(e.DocumentType)),
			zap.Int64("document_id", e.DocumentID),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// Latest returns the newest entry of a document
func (r *AuditRepository) Latest(ctx context.Context, docType entity.DocumentType, docID int64) (*entity.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries
		WHERE document_type = ? AND document_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`

	e, err := scanAudit(r.db.Executor(ctx).QueryRowContext(ctx, query, string(docType), docID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get latest audit entry", zap.Int64("document_id", docID), zap.Error(err))
		return nil, fmt.Errorf("failed to get latest audit entry: %w", err)
	}
	return e, nil
}

// History returns every entry of a document, newest first
func (r *AuditRepository) History(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries
		WHERE document_type = ? AND document_id = ?
		ORDER BY timestamp DESC, id DESC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, string(docType), docID)
	if err != nil {
		r.logger.Error("Failed to get audit history", zap.Int64("document_id", docID), zap.Error(err))
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	entries := []*entity.AuditEntry{}
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanAudit(row rowScanner) (*entity.AuditEntry, error) {
	var e entity.AuditEntry
	var docType string

	err := row.Scan(
		&e.ID,
		&e.EntryID,
		&docType,
		&e.DocumentID,
		&e.Timestamp,
		&e.ActorID,
		&e.ActorRole,
		&e.SystemMessage,
		&e.UserNote,
	)
	if err != nil {
		return nil, err
	}

	e.DocumentType = entity.DocumentType(docType)
	return &e, nil
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
