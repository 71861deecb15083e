package principal

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalContext(t *testing.T) {
	assert.Nil(t, Current(context.Background()))

	dealershipID := snowflake.ID(7)
	ctx := WithPrincipal(context.Background(), Principal{UserID: 1, Role: RoleAdmin, DealershipID: &dealershipID})

	p := Current(ctx)
	if assert.NotNil(t, p) {
		assert.True(t, p.InDealership(7))
		assert.False(t, p.InDealership(8))
	}
}

func TestSuperAdminHasNoDealership(t *testing.T) {
	p := Principal{UserID: 1, Role: RoleSuperAdmin}
	_, ok := p.Dealership()
	assert.False(t, ok)
	assert.False(t, p.InDealership(0))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("owner").Valid())
}
