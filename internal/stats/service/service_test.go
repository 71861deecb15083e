package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/internal/stats/repository"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatsScopes(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&leaddomain.Lead{}, &messagingdomain.Communication{}, &notificationdomain.Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)

	addLead := func(dealershipID snowflake.ID, status string) snowflake.ID {
		l := leaddomain.Lead{ID: node.Generate(), DealershipID: dealershipID, FirstName: "x", Status: status, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, conn.Create(&l).Error)
		return l.ID
	}
	first := addLead(10, leaddomain.StatusNew)
	addLead(10, leaddomain.StatusNew)
	addLead(10, leaddomain.StatusClosed)
	second := addLead(20, leaddomain.StatusWorking)

	for _, leadID := range []snowflake.ID{first, first, second} {
		require.NoError(t, conn.Create(&messagingdomain.Communication{
			ID: node.Generate(), LeadID: leadID, Type: "email", Direction: "inbound", Content: "hi", CreatedAt: now,
		}).Error)
	}
	require.NoError(t, conn.Create(&messagingdomain.Communication{
		ID: node.Generate(), LeadID: first, Type: "internal", Direction: "outbound", Content: "note", CreatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&notificationdomain.Notification{
		ID: node.Generate(), UserID: 100, Type: notificationdomain.TypeMention, Message: "m", CreatedAt: now,
	}).Error)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Authz: authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
	})

	dealershipID := snowflake.ID(10)
	summary, err := svc.Get(principal.WithPrincipal(context.Background(), principal.Principal{UserID: 100, Role: principal.RoleUser, DealershipID: &dealershipID}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalLeads)
	assert.Equal(t, int64(2), summary.ActiveDeals)
	assert.Equal(t, int64(2), summary.InboundMessages)
	assert.Equal(t, int64(1), summary.UnreadNotifications)
	assert.Equal(t, map[string]int64{"new": 2, "contacted": 0, "working": 0, "closed": 1}, summary.LeadsByStatus)

	platform, err := svc.Get(principal.WithPrincipal(context.Background(), principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), platform.TotalLeads)
	assert.Equal(t, int64(3), platform.InboundMessages)
	assert.Zero(t, platform.UnreadNotifications)
}
