package rbac

import (
	"fmt"
	"strings"
)

// Role is a tier in the fixed user < admin < super_admin < god hierarchy.
// The string values are stored in profiles.role and must not be renamed.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleGod        Role = "god"
)

var roleWeights = map[Role]int{
	RoleUser:       10,
	RoleAdmin:      50,
	RoleSuperAdmin: 75,
	RoleGod:        100,
}

// Roles lists every role from least to most privileged.
var Roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin, RoleGod}

// Weight returns the role's ordering weight, or 0 for an unknown role.
func (r Role) Weight() int {
	return roleWeights[r]
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	_, ok := roleWeights[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a stored or user-supplied role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Outranks reports whether a is strictly above b. Unknown roles never outrank.
func Outranks(a, b Role) bool {
	if !a.Valid() {
		return false
	}
	return a.Weight() > b.Weight()
}

// IsAtLeast reports whether a is b or above. Unknown roles satisfy nothing.
func IsAtLeast(a, b Role) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return a.Weight() >= b.Weight()
}

// RoleInfo holds display metadata for a role.
type RoleInfo struct {
	Role        Role   `json:"role"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

var roleInfo = map[Role]RoleInfo{
	RoleUser: {
		Role: RoleUser, Label: "User", Weight: 10,
		Description: "Works with documents inside their organization",
	},
	RoleAdmin: {
		Role: RoleAdmin, Label: "Admin", Weight: 50,
		Description: "Manages users, documents and AI agents for an organization",
	},
	RoleSuperAdmin: {
		Role: RoleSuperAdmin, Label: "Super Admin", Weight: 75,
		Description: "Owns the organization, approves members and manages settings",
	},
	RoleGod: {
		Role: RoleGod, Label: "God", Weight: 100,
		Description: "Platform operator with access to every organization",
	},
}

// Info returns display metadata for r. Unknown roles get a zero-weight entry.
func Info(r Role) RoleInfo {
	if info, ok := roleInfo[r]; ok {
		return info
	}
	return RoleInfo{Role: r, Label: string(r)}
}
