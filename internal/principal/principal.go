// Package principal carries the verified caller of a request.
package principal

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RolePrincipal  Role = "principal"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Roles lists every role, broadest first.
var Roles = []Role{RoleSuperAdmin, RolePrincipal, RoleAdmin, RoleUser}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string { return string(r) }

// Principal is built from token claims only. It is never refreshed from the
// database during a request.
type Principal struct {
	UserID       snowflake.ID
	Role         Role
	DealershipID *snowflake.ID
	LocationIDs  []snowflake.ID
	// ExpiresAt is the token expiry. Zero when the principal was not built
	// from a token.
	ExpiresAt time.Time
}

// Dealership returns the tenant the principal belongs to. super_admin has none.
func (p Principal) Dealership() (snowflake.ID, bool) {
	if p.DealershipID == nil || *p.DealershipID == 0 {
		return 0, false
	}
	return *p.DealershipID, true
}

func (p Principal) InDealership(id snowflake.ID) bool {
	own, ok := p.Dealership()
	return ok && own == id
}

func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(contextKey{}).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, false
	}
	return p, true
}

// Current returns the request principal or nil when the call is anonymous.
func Current(ctx context.Context) *Principal {
	p, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return &p
}
