package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	"github.com/smallbiznis/dealflow/internal/audit/repository"
	"github.com/smallbiznis/dealflow/internal/clock"
	obscontext "github.com/smallbiznis/dealflow/internal/observability/context"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/smallbiznis/dealflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func TestRecordResolvesActorFromPrincipal(t *testing.T) {
	svc, _ := newTestService(t)

	dealershipID := snowflake.ID(11)
	ctx := principal.WithPrincipal(context.Background(), principal.Principal{
		UserID:       5,
		Role:         principal.RolePrincipal,
		DealershipID: &dealershipID,
	})
	ctx = obscontext.WithClient(ctx, "10.0.0.1", "curl/8")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		Action:     "user.create",
		TargetType: "user",
		TargetID:   "99",
		Metadata:   map[string]any{"role": "admin"},
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{DealershipID: &dealershipID})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "user", entry.ActorType)
	assert.Equal(t, "5", *entry.ActorID)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
	assert.Equal(t, "admin", entry.Metadata["role"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Record(context.Background(), auditdomain.Entry{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "login.failed", TargetType: "user"}))
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 3)
	assert.True(t, first.HasMore)
	assert.True(t, first.AuditLogs[0].CreatedAt.After(first.AuditLogs[1].CreatedAt))
	assert.Equal(t, "system", first.AuditLogs[0].ActorType)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 3, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 2)
	assert.False(t, second.HasMore)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Now()
	end := start.Add(-time.Hour)

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
