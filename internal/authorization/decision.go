package authorization

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/principal"
)

// Decision is a granted permission and the scope it was granted at.
type Decision struct {
	Principal principal.Principal
	Object    string
	Action    string
	Scope     Scope
}

func (d Decision) Platform() bool {
	return d.Scope == ScopePlatform
}

// AllowsDealership reports whether a resource owned by id is within scope.
func (d Decision) AllowsDealership(id snowflake.ID) bool {
	if d.Platform() {
		return true
	}
	return d.Principal.InDealership(id)
}

// TenantFilter returns the dealership to filter list queries by. A nil id
// with ok=true means no filter. ok=false means nothing is visible, which is
// the case for a dealership-scoped grant held by a principal with no
// dealership.
func (d Decision) TenantFilter() (id *snowflake.ID, ok bool) {
	if d.Platform() {
		return nil, true
	}
	own, ok := d.Principal.Dealership()
	if !ok {
		return nil, false
	}
	return &own, true
}

// ExcludesSelf reports whether the caller's own record must be omitted.
func (d Decision) ExcludesSelf() bool {
	return d.Scope == ScopeDealershipExceptSelf
}
