package event

// Type identifies the type of domain event
type Type string

const (
	TypeDocumentCreated  Type = "document.created"
	TypeDocumentUpdated  Type = "document.updated"
	TypeStageChanged     Type = "document.stage_changed"
	TypeApprovalChanged  Type = "document.approval_changed"
	TypeDocumentArchived Type = "document.archived"
	TypeDocumentCanceled Type = "document.cancelled"
	TypeBillingChanged   Type = "billing.changed"
	TypeCounterCreated   Type = "counter.created"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentCreated,
		TypeDocumentUpdated,
		TypeStageChanged,
		TypeApprovalChanged,
		TypeDocumentArchived,
		TypeDocumentCanceled,
		TypeBillingChanged,
		TypeCounterCreated:
		return true
	default:
		return false
	}
}
