package port

import (
	"github.com/garyjia/docflow/internal/domain/workflow"
)

// Actor is the already-authenticated caller of an operation
type Actor struct {
	ID            string   `json:"id"`
	Groups        []string `json:"groups"`
	Superuser     bool     `json:"superuser"`
	SimulatedRole string   `json:"simulated_role,omitempty"`
}

// RoleResolver maps an actor to its logical workflow role
type RoleResolver interface {
	// Resolve returns the actor's role, or false when none applies
	Resolve(actor Actor) (workflow.Role, bool)

	// IsElevated reports whether the actor bypasses role gates
	IsElevated(actor Actor) bool
}
