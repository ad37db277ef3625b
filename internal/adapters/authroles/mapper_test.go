package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelRoleMapper(t *testing.T) {
	m := NewLevelRoleMapper(map[int][]string{
		0: {"user"},
		1: {"user", "editor"},
		3: {"user", "admin"},
	})

	tests := []struct {
		level int
		want  []string
	}{
		{level: -1, want: []string{"user"}},
		{level: 0, want: []string{"user"}},
		{level: 1, want: []string{"user", "editor"}},
		{level: 2, want: []string{"user", "editor"}},
		{level: 3, want: []string{"user", "admin"}},
		{level: 99, want: []string{"user", "admin"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Map(tt.level), "level %d", tt.level)
	}
}

func TestLevelRoleMapper_DefaultsAndCopies(t *testing.T) {
	m := NewLevelRoleMapper(nil)
	assert.Equal(t, []string{"user"}, m.Map(0))
	assert.Equal(t, []string{"user", "admin"}, m.Map(1))

	got := m.Map(1)
	got[0] = "mutated"
	assert.Equal(t, []string{"user", "admin"}, m.Map(1))

	empty := NewLevelRoleMapper(map[int][]string{0: {}})
	assert.Equal(t, []string{"user"}, empty.Map(0))
}

func TestResourceRoleMapper(t *testing.T) {
	m := NewResourceRoleMapper(nil)

	tests := []struct {
		name     string
		roles    []string
		resource string
		want     []string
	}{
		{name: "admin and user", roles: []string{"admin", "user"}, resource: "mail-service", want: []string{"superadmin", "editor"}},
		{name: "dedup", roles: []string{"admin", "superadmin", "tenantadmin", "tenant_admin"}, resource: "mail-service", want: []string{"superadmin", "tenant_admin"}},
		{name: "unmapped role", roles: []string{"viewer", "editor"}, resource: "other-service", want: []string{"user", "contributor"}},
		{name: "unknown resource", roles: []string{"admin"}, resource: "nope", want: []string{"user"}},
		{name: "no roles", roles: nil, resource: "mail-service", want: []string{"user"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.MapToResource(tt.roles, tt.resource))
		})
	}
}

func TestResourceRoleMapper_CustomTable(t *testing.T) {
	m := NewResourceRoleMapper(map[string]map[string]string{"wiki": {"admin": "owner"}})
	assert.Equal(t, []string{"owner"}, m.MapToResource([]string{"admin"}, "wiki"))
	assert.Equal(t, []string{"user"}, m.MapToResource([]string{"admin"}, "mail-service"))
}
