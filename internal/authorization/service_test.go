package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func principalFor(role principal.Role, dealershipID snowflake.ID) *principal.Principal {
	p := &principal.Principal{UserID: 1, Role: role}
	if dealershipID != 0 {
		p.DealershipID = &dealershipID
	}
	return p
}

func TestCapabilityMatrix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	superAdmin := principalFor(principal.RoleSuperAdmin, 0)
	owner := principalFor(principal.RolePrincipal, 10)
	admin := principalFor(principal.RoleAdmin, 10)
	user := principalFor(principal.RoleUser, 10)

	cases := []struct {
		name   string
		p      *principal.Principal
		object string
		action string
		scope  Scope
	}{
		{"super_admin manages dealerships", superAdmin, ObjectDealership, ActionCreate, ScopePlatform},
		{"super_admin deletes dealerships", superAdmin, ObjectDealership, ActionDelete, ScopePlatform},
		{"principal cannot list dealerships", owner, ObjectDealership, ActionList, ""},
		{"admin cannot list dealerships", admin, ObjectDealership, ActionList, ""},
		{"user cannot list dealerships", user, ObjectDealership, ActionList, ""},

		{"super_admin lists all locations", superAdmin, ObjectLocation, ActionList, ScopePlatform},
		{"principal lists own locations", owner, ObjectLocation, ActionList, ScopeDealership},
		{"admin lists own locations", admin, ObjectLocation, ActionList, ScopeDealership},
		{"user lists own locations", user, ObjectLocation, ActionList, ScopeDealership},
		{"super_admin edits locations", superAdmin, ObjectLocation, ActionUpdate, ScopePlatform},
		{"principal edits own locations", owner, ObjectLocation, ActionUpdate, ScopeDealership},
		{"admin cannot create locations", admin, ObjectLocation, ActionCreate, ""},
		{"user cannot delete locations", user, ObjectLocation, ActionDelete, ""},

		{"super_admin lists all users", superAdmin, ObjectUser, ActionList, ScopePlatform},
		{"principal lists users except self", owner, ObjectUser, ActionList, ScopeDealershipExceptSelf},
		{"admin lists users except self", admin, ObjectUser, ActionList, ScopeDealershipExceptSelf},
		{"user cannot list users", user, ObjectUser, ActionList, ""},
		{"super_admin cannot create users", superAdmin, ObjectUser, ActionCreate, ""},
		{"principal creates users", owner, ObjectUser, ActionCreate, ScopeDealership},
		{"admin cannot edit users", admin, ObjectUser, ActionUpdate, ""},
		{"user cannot delete users", user, ObjectUser, ActionDelete, ""},

		{"super_admin lead list is tenant scoped", superAdmin, ObjectLead, ActionList, ScopeDealership},
		{"super_admin cannot read leads", superAdmin, ObjectLead, ActionRead, ""},
		{"super_admin cannot create leads", superAdmin, ObjectLead, ActionCreate, ""},
		{"principal updates leads", owner, ObjectLead, ActionUpdate, ScopeDealership},
		{"admin creates leads", admin, ObjectLead, ActionCreate, ScopeDealership},
		{"user reads leads", user, ObjectLead, ActionRead, ScopeDealership},

		{"super_admin cannot send messages", superAdmin, ObjectMessage, ActionSend, ""},
		{"super_admin cannot read messages", superAdmin, ObjectMessage, ActionList, ""},
		{"principal sends messages", owner, ObjectMessage, ActionSend, ScopeDealership},
		{"user reads messages", user, ObjectMessage, ActionRead, ScopeDealership},

		{"everyone lists roles", user, ObjectRole, ActionList, ScopePlatform},
		{"notifications are self scoped", admin, ObjectNotification, ActionList, ScopeSelf},
		{"only principal manages intake keys", owner, ObjectIntakeKey, ActionCreate, ScopeDealership},
		{"admin cannot manage intake keys", admin, ObjectIntakeKey, ActionList, ""},
		{"super_admin reads all audit logs", superAdmin, ObjectAuditLog, ActionList, ScopePlatform},
		{"principal reads own audit logs", owner, ObjectAuditLog, ActionList, ScopeDealership},
		{"user cannot read audit logs", user, ObjectAuditLog, ActionList, ""},
		{"super_admin stats are platform wide", superAdmin, ObjectStats, ActionRead, ScopePlatform},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := svc.Authorize(ctx, tc.p, tc.object, tc.action)
			if tc.scope == "" {
				assert.ErrorIs(t, err, ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.scope, decision.Scope)
		})
	}
}

func TestAuthorizeRequiresPrincipal(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Authorize(context.Background(), nil, ObjectLead, ActionList)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorizeDealershipRejectsCrossTenant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AuthorizeDealership(ctx, principalFor(principal.RolePrincipal, 10), ObjectLead, ActionRead, 10)
	assert.NoError(t, err)

	_, err = svc.AuthorizeDealership(ctx, principalFor(principal.RolePrincipal, 10), ObjectLead, ActionRead, 20)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AuthorizeDealership(ctx, principalFor(principal.RoleSuperAdmin, 0), ObjectLocation, ActionUpdate, 20)
	assert.NoError(t, err)
}

func TestTenantFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	decision, err := svc.Authorize(ctx, principalFor(principal.RoleSuperAdmin, 0), ObjectLead, ActionList)
	require.NoError(t, err)
	_, ok := decision.TenantFilter()
	assert.False(t, ok, "super_admin has no dealership to scope leads to")

	decision, err = svc.Authorize(ctx, principalFor(principal.RoleSuperAdmin, 0), ObjectLocation, ActionList)
	require.NoError(t, err)
	id, ok := decision.TenantFilter()
	assert.True(t, ok)
	assert.Nil(t, id)

	decision, err = svc.Authorize(ctx, principalFor(principal.RoleAdmin, 10), ObjectUser, ActionList)
	require.NoError(t, err)
	id, ok = decision.TenantFilter()
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(10), *id)
	assert.True(t, decision.ExcludesSelf())
}

func TestPersistedEnforcerPrunesStaleRules(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("role:user", ObjectDealership, ActionDelete, string(ScopePlatform))
	require.NoError(t, err)

	reloaded, err := NewEnforcer(conn)
	require.NoError(t, err)
	ok, err := reloaded.Enforce("role:user", ObjectDealership, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	rules, err := reloaded.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, rules, len(policies()))
}
