package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/docflow/internal/domain/entity"
)

// Event is a committed change to a workflow document
type Event struct {
	ID           string                 `json:"id"`
	Type         Type                   `json:"type"`
	DocumentType entity.DocumentType    `json:"document_type"`
	DocumentID   int64                  `json:"document_id"`
	Identifier   string                 `json:"identifier,omitempty"`
	ActorID      string                 `json:"actor_id,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// NewEvent creates an event with a generated ID and the current timestamp
func NewEvent(eventType Type, docType entity.DocumentType, docID int64, identifier, actorID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		DocumentType: docType,
		DocumentID:   docID,
		Identifier:   identifier,
		ActorID:      actorID,
		Payload:      payload,
		Timestamp:    time.Now(),
	}
}

// WithPayload returns a copy of the event with an added payload key (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
