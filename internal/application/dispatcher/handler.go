package dispatcher

import (
	"context"

	"github.com/garyjia/docflow/internal/domain/event"
)

// Handler reacts to a committed document event. Handlers must not mutate documents.
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// LoggingHandler returns a handler that records every event it receives
func LoggingHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Document event",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"document_type", evt.DocumentType,
			"document_id", evt.DocumentID,
			"identifier", evt.Identifier,
			"actor_id", evt.ActorID,
		)
		return nil
	}
}
