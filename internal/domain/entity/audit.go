package entity

import "time"

// AuditEntry is one append-only record in a document's history
type AuditEntry struct {
	ID            int64        `json:"-"`
	EntryID       string       `json:"entry_id"`
	DocumentType  DocumentType `json:"document_type"`
	DocumentID    int64        `json:"document_id"`
	Timestamp     time.Time    `json:"timestamp"`
	ActorID       string       `json:"actor_id"`
	ActorRole     string       `json:"actor_role"`
	SystemMessage string       `json:"system_message"`
	UserNote      string       `json:"user_note"`
}
