package authorization

import "github.com/smallbiznis/dealflow/internal/principal"

const (
	ObjectDealership   = "dealership"
	ObjectLocation     = "location"
	ObjectRole         = "role"
	ObjectUser         = "user"
	ObjectLead         = "lead"
	ObjectMessage      = "message"
	ObjectNotification = "notification"
	ObjectTask         = "task"
	ObjectStats        = "stats"
	ObjectIntakeKey    = "intake_key"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionList   = "list"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSend   = "send"
)

type Scope string

const (
	// ScopePlatform spans every dealership.
	ScopePlatform Scope = "platform"
	// ScopeDealership limits the caller to their own dealership.
	ScopeDealership Scope = "dealership"
	// ScopeDealershipExceptSelf is ScopeDealership without the caller's own record.
	ScopeDealershipExceptSelf Scope = "dealership_except_self"
	// ScopeSelf limits the caller to records addressed to them.
	ScopeSelf Scope = "self"
)

type capability struct {
	role   principal.Role
	object string
	action string
	scope  Scope
}

func grant(role principal.Role, object string, scope Scope, actions ...string) []capability {
	out := make([]capability, 0, len(actions))
	for _, action := range actions {
		out = append(out, capability{role: role, object: object, action: action, scope: scope})
	}
	return out
}

var crud = []string{ActionList, ActionCreate, ActionUpdate, ActionDelete}

// capabilityTable is the single source of role permissions. Anything not
// listed is forbidden.
func capabilityTable() []capability {
	var table []capability
	add := func(c []capability) { table = append(table, c...) }

	// super_admin operates at the dealership-management level.
	add(grant(principal.RoleSuperAdmin, ObjectDealership, ScopePlatform, crud...))
	add(grant(principal.RoleSuperAdmin, ObjectLocation, ScopePlatform, crud...))
	add(grant(principal.RoleSuperAdmin, ObjectUser, ScopePlatform, ActionList))
	// No dealership context, so this resolves to an empty list.
	add(grant(principal.RoleSuperAdmin, ObjectLead, ScopeDealership, ActionList))
	add(grant(principal.RoleSuperAdmin, ObjectStats, ScopePlatform, ActionRead))
	add(grant(principal.RoleSuperAdmin, ObjectAuditLog, ScopePlatform, ActionList))

	add(grant(principal.RolePrincipal, ObjectLocation, ScopeDealership, crud...))
	add(grant(principal.RolePrincipal, ObjectUser, ScopeDealershipExceptSelf, ActionList))
	add(grant(principal.RolePrincipal, ObjectUser, ScopeDealership, ActionCreate, ActionUpdate, ActionDelete))
	add(grant(principal.RolePrincipal, ObjectIntakeKey, ScopeDealership, ActionList, ActionCreate, ActionDelete))
	add(grant(principal.RolePrincipal, ObjectAuditLog, ScopeDealership, ActionList))

	add(grant(principal.RoleAdmin, ObjectLocation, ScopeDealership, ActionList))
	add(grant(principal.RoleAdmin, ObjectUser, ScopeDealershipExceptSelf, ActionList))

	add(grant(principal.RoleUser, ObjectLocation, ScopeDealership, ActionList))

	for _, role := range []principal.Role{principal.RolePrincipal, principal.RoleAdmin, principal.RoleUser} {
		add(grant(role, ObjectLead, ScopeDealership, ActionList, ActionRead, ActionCreate, ActionUpdate))
		add(grant(role, ObjectMessage, ScopeDealership, ActionList, ActionRead, ActionSend))
		add(grant(role, ObjectTask, ScopeDealership, ActionList, ActionCreate, ActionUpdate))
		add(grant(role, ObjectStats, ScopeDealership, ActionRead))
	}

	for _, role := range principal.Roles {
		add(grant(role, ObjectRole, ScopePlatform, ActionList))
		add(grant(role, ObjectNotification, ScopeSelf, ActionList, ActionUpdate, ActionDelete))
	}
	return table
}

func subject(role principal.Role) string {
	return "role:" + string(role)
}

func policies() [][]string {
	table := capabilityTable()
	out := make([][]string, 0, len(table))
	for _, c := range table {
		out = append(out, []string{subject(c.role), c.object, c.action, string(c.scope)})
	}
	return out
}
