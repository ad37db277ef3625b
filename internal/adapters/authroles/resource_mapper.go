package authroles

import domainauth "github.com/avisitor/idp-client/internal/domain/auth"

// ResourceRoleMapper translates application roles into the role names a
// downstream resource understands.
type ResourceRoleMapper struct {
	table map[string]map[string]string
}

// DefaultResourceRoles is the built-in translation table.
func DefaultResourceRoles() map[string]map[string]string {
	return map[string]map[string]string{
		"mail-service": {
			"superadmin":   "superadmin",
			"admin":        "superadmin",
			"tenant_admin": "tenant_admin",
			"tenantadmin":  "tenant_admin",
			"editor":       "editor",
			"user":         "editor",
		},
		"other-service": {
			"superadmin": "manager",
			"admin":      "manager",
			"editor":     "contributor",
		},
	}
}

// NewResourceRoleMapper uses table, or DefaultResourceRoles when table is nil.
func NewResourceRoleMapper(table map[string]map[string]string) *ResourceRoleMapper {
	if table == nil {
		table = DefaultResourceRoles()
	}
	return &ResourceRoleMapper{table: table}
}

// MapToResource maps each role through the resource's table. Unmapped roles
// and unknown resources become "user". The result keeps first-seen order,
// has no duplicates, and is never empty.
func (m *ResourceRoleMapper) MapToResource(appRoles []string, resource string) []string {
	mapping := m.table[resource]
	out := make([]string, 0, len(appRoles))
	seen := make(map[string]struct{}, len(appRoles))
	for _, role := range appRoles {
		mapped, ok := mapping[role]
		if !ok {
			mapped = domainauth.RoleUser
		}
		if _, dup := seen[mapped]; dup {
			continue
		}
		seen[mapped] = struct{}{}
		out = append(out, mapped)
	}
	if len(out) == 0 {
		return domainauth.DefaultRoles()
	}
	return out
}
