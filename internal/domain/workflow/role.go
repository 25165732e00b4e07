package workflow

// Role is the logical role an actor holds
type Role string

const (
	RoleSalesAgent        Role = "SalesAgent"
	RoleSalesHead         Role = "SalesHead"
	RoleLogisticsOfficer  Role = "LogisticsOfficer"
	RoleLogisticsHead     Role = "LogisticsHead"
	RoleAccountingOfficer Role = "AccountingOfficer"
	RoleAccountingHead    Role = "AccountingHead"
	RoleTopManagement     Role = "TopManagement"
	RoleAGR               Role = "AGR"
	RoleRVT               Role = "RVT"
	RoleJGG               Role = "JGG"
)

// RoleSet is an unordered set of roles
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the role is in the set
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Authority is an actor's resolved standing for one operation
type Authority struct {
	ActorID   string
	Role      Role
	Elevated  bool
	Superuser bool
}

// Allows reports whether the authority passes a role gate.
// Elevated actors bypass every gate.
func (a Authority) Allows(roles RoleSet) bool {
	if a.Elevated {
		return true
	}
	return a.Role != "" && roles.Has(a.Role)
}

// RoleLabel is the role name written to audit entries
func (a Authority) RoleLabel() string {
	if a.Role != "" {
		return string(a.Role)
	}
	if a.Superuser {
		return "SUPERUSER"
	}
	return ""
}

var knownRoles = NewRoleSet(
	RoleSalesAgent,
	RoleSalesHead,
	RoleLogisticsOfficer,
	RoleLogisticsHead,
	RoleAccountingOfficer,
	RoleAccountingHead,
	RoleTopManagement,
	RoleAGR,
	RoleRVT,
	RoleJGG,
)

// IsValid reports whether the role is one of the defined roles
func (r Role) IsValid() bool {
	return knownRoles.Has(r)
}

// requireRole rejects actors with neither a role nor elevation
func requireRole(a Authority) error {
	if a.Role == "" && !a.Elevated {
		return Forbidden(msgNoRole)
	}
	return nil
}
