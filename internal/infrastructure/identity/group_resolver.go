package identity

import (
	"fmt"
	"strings"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/workflow"
)

// DefaultPrecedence is the order in which group memberships win when an actor has several
var DefaultPrecedence = []workflow.Role{
	workflow.RoleSalesAgent,
	workflow.RoleSalesHead,
	workflow.RoleLogisticsOfficer,
	workflow.RoleLogisticsHead,
	workflow.RoleAccountingOfficer,
	workflow.RoleAccountingHead,
	workflow.RoleTopManagement,
	workflow.RoleAGR,
	workflow.RoleRVT,
	workflow.RoleJGG,
}

// DefaultElevatedGroups are the groups whose members bypass role gates
var DefaultElevatedGroups = []string{string(workflow.RoleTopManagement)}

// Config describes how directory groups map onto workflow roles
type Config struct {
	// Precedence lists roles in resolution order. Empty means DefaultPrecedence.
	Precedence []string
	// ElevatedGroups lists groups that grant elevation. Empty means DefaultElevatedGroups.
	ElevatedGroups []string
	// Aliases maps extra group names onto roles, e.g. "sales-team" -> SalesAgent
	Aliases map[string]string
}

// GroupResolver implements port.RoleResolver from actor group memberships
type GroupResolver struct {
	precedence []workflow.Role
	elevated   map[string]struct{}
	aliases    map[string]workflow.Role
}

// NewGroupResolver validates cfg and builds a resolver
func NewGroupResolver(cfg Config) (*GroupResolver, error) {
	r := &GroupResolver{
		elevated: make(map[string]struct{}),
		aliases:  make(map[string]workflow.Role),
	}

	if len(cfg.Precedence) == 0 {
		r.precedence = append(r.precedence, DefaultPrecedence...)
	}
	for _, name := range cfg.Precedence {
		role := workflow.Role(strings.TrimSpace(name))
		if !role.IsValid() {
			return nil, fmt.Errorf("unknown role %q in group precedence", name)
		}
		r.precedence = append(r.precedence, role)
	}

	groups := cfg.ElevatedGroups
	if len(groups) == 0 {
		groups = DefaultElevatedGroups
	}
	for _, g := range groups {
		r.elevated[normalize(g)] = struct{}{}
	}

	for group, name := range cfg.Aliases {
		role := workflow.Role(name)
		if !role.IsValid() {
			return nil, fmt.Errorf("group alias %q maps to unknown role %q", group, name)
		}
		r.aliases[normalize(group)] = role
	}

	return r, nil
}

// Resolve returns the actor's role. An elevated actor may simulate any known role.
func (r *GroupResolver) Resolve(actor port.Actor) (workflow.Role, bool) {
	if role, ok := r.simulated(actor); ok {
		return role, true
	}

	held := make(map[workflow.Role]struct{}, len(actor.Groups))
	for _, g := range actor.Groups {
		if role, ok := r.roleOf(g); ok {
			held[role] = struct{}{}
		}
	}
	for _, role := range r.precedence {
		if _, ok := held[role]; ok {
			return role, true
		}
	}
	return "", false
}

// IsElevated reports superusers and members of elevated groups.
// An actor simulating a role is judged as that role and is not elevated.
func (r *GroupResolver) IsElevated(actor port.Actor) bool {
	if _, ok := r.simulated(actor); ok {
		return false
	}
	return r.baseElevated(actor)
}

func (r *GroupResolver) simulated(actor port.Actor) (workflow.Role, bool) {
	if actor.SimulatedRole == "" || !r.baseElevated(actor) {
		return "", false
	}
	role := workflow.Role(actor.SimulatedRole)
	if !role.IsValid() {
		return "", false
	}
	return role, true
}

func (r *GroupResolver) baseElevated(actor port.Actor) bool {
	if actor.Superuser {
		return true
	}
	for _, g := range actor.Groups {
		if _, ok := r.elevated[normalize(g)]; ok {
			return true
		}
	}
	return false
}

func (r *GroupResolver) roleOf(group string) (workflow.Role, bool) {
	if role, ok := r.aliases[normalize(group)]; ok {
		return role, true
	}
	role := workflow.Role(strings.TrimSpace(group))
	return role, role.IsValid()
}

func normalize(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}

// Verify interface compliance
var _ port.RoleResolver = (*GroupResolver)(nil)
