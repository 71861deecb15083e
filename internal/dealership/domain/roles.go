package domain

import "github.com/smallbiznis/dealflow/internal/principal"

// DefaultRoles is the built-in role catalog, ordered from most to least
// privileged.
func DefaultRoles() []Role {
	return []Role{
		{Name: principal.RoleSuperAdmin.String(), Description: "Platform operator with access to every dealership", SortOrder: 0},
		{Name: principal.RolePrincipal.String(), Description: "Owner of a dealership", SortOrder: 1},
		{Name: principal.RoleAdmin.String(), Description: "Dealership manager", SortOrder: 2},
		{Name: principal.RoleUser.String(), Description: "Salesperson", SortOrder: 3},
	}
}
