package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/auth/password"
	"github.com/smallbiznis/dealflow/internal/clock"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&dealershipdomain.Dealership{},
		&dealershipdomain.Location{},
		&dealershipdomain.Role{},
		&userdomain.User{},
		&userdomain.UserLocation{},
		&leaddomain.Lead{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	seeder := New(conn, node, clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), zap.NewNop())

	ctx := context.Background()
	require.NoError(t, seeder.Run(ctx))
	require.NoError(t, seeder.Run(ctx))

	counts := map[any]int64{
		&dealershipdomain.Dealership{}: 1,
		&dealershipdomain.Location{}:   1,
		&dealershipdomain.Role{}:       4,
		&userdomain.User{}:             2,
		&userdomain.UserLocation{}:     1,
		&leaddomain.Lead{}:             3,
	}
	for model, want := range counts {
		var got int64
		require.NoError(t, conn.Model(model).Count(&got).Error)
		assert.Equal(t, want, got, "%T", model)
	}

	var owner userdomain.User
	require.NoError(t, conn.Where("email = ?", "principal@dealflow.com").First(&owner).Error)
	assert.Equal(t, "principal", owner.Role)
	require.NotNil(t, owner.DealershipID)
	assert.True(t, password.Verify("principal123", owner.PasswordHash))

	var root userdomain.User
	require.NoError(t, conn.Where("email = ?", "super@dealflow.com").First(&root).Error)
	assert.Nil(t, root.DealershipID)
}
