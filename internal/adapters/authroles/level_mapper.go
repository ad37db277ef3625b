// Package authroles turns host-side user attributes into role lists.
package authroles

import (
	"slices"

	domainauth "github.com/avisitor/idp-client/internal/domain/auth"
	"github.com/avisitor/idp-client/internal/ports"
)

// LevelRoleMapper grants the roles of the highest configured level that does
// not exceed the user's admin level. Levels below every entry get ["user"].
type LevelRoleMapper struct {
	levels []int
	roles  map[int][]string
}

var _ ports.RoleMapper = (*LevelRoleMapper)(nil)

// NewLevelRoleMapper copies table. An empty table maps 0 to user and 1+ to user,admin.
func NewLevelRoleMapper(table map[int][]string) *LevelRoleMapper {
	if len(table) == 0 {
		table = map[int][]string{
			0: {domainauth.RoleUser},
			1: {domainauth.RoleUser, domainauth.RoleAdmin},
		}
	}
	m := &LevelRoleMapper{roles: make(map[int][]string, len(table))}
	for level, roles := range table {
		m.levels = append(m.levels, level)
		m.roles[level] = slices.Clone(roles)
	}
	slices.Sort(m.levels)
	return m
}

// Map returns a fresh slice; callers may modify it.
func (m *LevelRoleMapper) Map(adminLevel int) []string {
	var roles []string
	for _, level := range m.levels {
		if level > adminLevel {
			break
		}
		roles = m.roles[level]
	}
	if len(roles) == 0 {
		return domainauth.DefaultRoles()
	}
	return slices.Clone(roles)
}
