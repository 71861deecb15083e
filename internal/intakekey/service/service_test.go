package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	auditrepo "github.com/smallbiznis/dealflow/internal/audit/repository"
	auditservice "github.com/smallbiznis/dealflow/internal/audit/service"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	dealershiprepo "github.com/smallbiznis/dealflow/internal/dealership/repository"
	"github.com/smallbiznis/dealflow/internal/intakekey/domain"
	"github.com/smallbiznis/dealflow/internal/intakekey/repository"
	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIntakeKeyLifecycle(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&dealershipdomain.Dealership{}, &domain.IntakeKey{}, &auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	audit := auditservice.NewService(auditservice.Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepo.Provide()})

	drepo := dealershiprepo.Provide()
	now := clk.Now()
	dealership := dealershipdomain.Dealership{ID: node.Generate(), Name: "Default Motors", Slug: "default-motors", Status: "active", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, drepo.InsertDealership(context.Background(), conn, &dealership))

	svc := New(Params{
		DB:             conn,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clk,
		Repo:           repository.Provide(),
		DealershipRepo: drepo,
		Authz:          authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		AuditSvc:       audit,
	})

	ctx := principal.WithPrincipal(context.Background(), principal.Principal{UserID: 5, Role: principal.RolePrincipal, DealershipID: &dealership.ID})

	secret, err := svc.Create(ctx, domain.CreateRequest{Name: "Website form"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret.Key, "dfk_defaultmotors_"))

	resolved, err := svc.Resolve(context.Background(), secret.Key)
	require.NoError(t, err)
	assert.Equal(t, dealership.ID, resolved)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(secret.Key, keys[0].Prefix))
	assert.NotNil(t, keys[0].LastUsedAt)

	_, err = svc.Resolve(context.Background(), "dfk_defaultmotors_nope")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	require.NoError(t, svc.Revoke(ctx, secret.ID.String()))
	_, err = svc.Resolve(context.Background(), secret.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	logs, err := audit.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "intake_key"})
	require.NoError(t, err)
	assert.Len(t, logs.AuditLogs, 2)

	admin := principal.WithPrincipal(context.Background(), principal.Principal{UserID: 6, Role: principal.RoleAdmin, DealershipID: &dealership.ID})
	_, err = svc.Create(admin, domain.CreateRequest{Name: "x"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	otherID := snowflake.ID(99)
	other := principal.WithPrincipal(context.Background(), principal.Principal{UserID: 7, Role: principal.RolePrincipal, DealershipID: &otherID})
	err = svc.Revoke(other, secret.ID.String())
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}
