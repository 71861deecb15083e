package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/dealership/domain"
	"github.com/smallbiznis/dealflow/internal/dealership/repository"
	"github.com/smallbiznis/dealflow/internal/principal"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	userrepo "github.com/smallbiznis/dealflow/internal/user/repository"
	"github.com/smallbiznis/dealflow/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	repo domain.Repository
	clk  *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Dealership{},
		&domain.Location{},
		&domain.Role{},
		&userdomain.User{},
		&userdomain.UserLocation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	repo := repository.Provide()

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repo,
		UserRepo: userrepo.Provide(),
		Authz:    authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
	})
	return fixture{svc: svc, db: conn, repo: repo, clk: clk}
}

func asSuperAdmin() context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin})
}

func as(role principal.Role, dealershipID snowflake.ID) context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{
		UserID:       2,
		Role:         role,
		DealershipID: &dealershipID,
	})
}

func (f fixture) createDealership(t *testing.T, name, email string) domain.CreateDealershipResult {
	t.Helper()
	res, err := f.svc.CreateDealership(asSuperAdmin(), domain.CreateDealershipRequest{
		Name:      name,
		Principal: domain.PrincipalInput{Name: "Owner", Email: email, Password: "s3cretpass"},
	})
	require.NoError(t, err)
	return res
}

func TestCreateDealershipProvisionsLocationAndPrincipal(t *testing.T) {
	f := newFixture(t)
	res := f.createDealership(t, "Sunrise Motors", "Owner@Sunrise.test")

	assert.Equal(t, "sunrise-motors", res.Dealership.Slug)
	assert.Equal(t, "Main", res.Location.Name)
	assert.True(t, res.Location.IsDefault)
	assert.Equal(t, "owner@sunrise.test", res.Principal.Email)
	assert.Equal(t, principal.RolePrincipal.String(), res.Principal.Role)
	assert.NotEqual(t, "s3cretpass", res.Principal.PasswordHash)

	locations, err := f.svc.ListLocations(as(principal.RolePrincipal, res.ID))
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Sunrise Motors", locations[0].DealershipName)

	ids, err := userrepo.Provide().LocationIDs(context.Background(), f.db, []snowflake.ID{res.Principal.ID})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{res.Location.ID}, ids[res.Principal.ID])
}

func TestCreateDealershipRollsBackOnTakenEmail(t *testing.T) {
	f := newFixture(t)
	f.createDealership(t, "First", "owner@first.test")

	_, err := f.svc.CreateDealership(asSuperAdmin(), domain.CreateDealershipRequest{
		Name:      "Second",
		Principal: domain.PrincipalInput{Name: "Owner", Email: "OWNER@first.test", Password: "s3cretpass"},
	})
	assert.ErrorIs(t, err, userdomain.ErrEmailTaken)

	items, err := f.svc.ListDealerships(asSuperAdmin())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreateDealershipValidation(t *testing.T) {
	f := newFixture(t)
	ctx := asSuperAdmin()

	_, err := f.svc.CreateDealership(ctx, domain.CreateDealershipRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.CreateDealership(ctx, domain.CreateDealershipRequest{
		Name:      "X",
		Principal: domain.PrincipalInput{Name: "Owner", Email: "not-an-email", Password: "s3cretpass"},
	})
	assert.ErrorIs(t, err, userdomain.ErrInvalidEmail)

	_, err = f.svc.CreateDealership(ctx, domain.CreateDealershipRequest{
		Name:      "X",
		Principal: domain.PrincipalInput{Name: "Owner", Email: "a@b.test", Password: "short"},
	})
	assert.ErrorIs(t, err, userdomain.ErrInvalidPassword)
}

func TestDealershipManagementIsPlatformOnly(t *testing.T) {
	f := newFixture(t)
	res := f.createDealership(t, "Sunrise", "owner@sunrise.test")

	_, err := f.svc.CreateDealership(as(principal.RolePrincipal, res.ID), domain.CreateDealershipRequest{Name: "Other"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.ListDealerships(context.Background())
	assert.ErrorIs(t, err, authorization.ErrUnauthenticated)
}

func TestDeleteDealershipHidesIt(t *testing.T) {
	f := newFixture(t)
	res := f.createDealership(t, "Sunrise", "owner@sunrise.test")

	other := f.createDealership(t, "Harbor", "owner@harbor.test")

	require.NoError(t, f.svc.DeleteDealership(asSuperAdmin(), res.ID.String()))
	items, err := f.svc.ListDealerships(asSuperAdmin())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, other.ID, items[0].ID)

	// its locations go with it
	locations, err := f.svc.ListLocations(asSuperAdmin())
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, other.Location.ID, locations[0].ID)

	err = f.svc.DeleteDealership(asSuperAdmin(), res.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.UpdateDealership(asSuperAdmin(), "abc", domain.UpdateDealershipRequest{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDefaultLocationMovesAtomically(t *testing.T) {
	f := newFixture(t)
	res := f.createDealership(t, "Sunrise", "owner@sunrise.test")
	ctx := as(principal.RolePrincipal, res.ID)

	second, err := f.svc.CreateLocation(ctx, domain.CreateLocationRequest{Name: "North", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	first, err := f.repo.FindLocation(context.Background(), f.db, res.Location.ID)
	require.NoError(t, err)
	assert.False(t, first.IsDefault)

	makeDefault := true
	updated, err := f.svc.UpdateLocation(ctx, res.Location.ID.String(), domain.UpdateLocationRequest{IsDefault: &makeDefault})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	locations, err := f.svc.ListLocations(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, loc := range locations {
		if loc.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestDefaultLocationCannotBeUnsetOrDeleted(t *testing.T) {
	f := newFixture(t)
	res := f.createDealership(t, "Sunrise", "owner@sunrise.test")
	ctx := as(principal.RolePrincipal, res.ID)

	unset := false
	_, err := f.svc.UpdateLocation(ctx, res.Location.ID.String(), domain.UpdateLocationRequest{IsDefault: &unset})
	assert.ErrorIs(t, err, domain.ErrDefaultLocationRequired)

	err = f.svc.DeleteLocation(ctx, res.Location.ID.String())
	assert.ErrorIs(t, err, domain.ErrDefaultLocationProtected)

	other, err := f.svc.CreateLocation(ctx, domain.CreateLocationRequest{Name: "Satellite"})
	require.NoError(t, err)
	assert.False(t, other.IsDefault)
	require.NoError(t, f.svc.DeleteLocation(ctx, other.ID.String()))

	locations, err := f.svc.ListLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locations, 1)
}

func TestLocationWritesStayInsideTenant(t *testing.T) {
	f := newFixture(t)
	sunrise := f.createDealership(t, "Sunrise", "owner@sunrise.test")
	harbor := f.createDealership(t, "Harbor", "owner@harbor.test")
	ctx := as(principal.RolePrincipal, sunrise.ID)

	name := "Hijacked"
	_, err := f.svc.UpdateLocation(ctx, harbor.Location.ID.String(), domain.UpdateLocationRequest{Name: &name})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.CreateLocation(ctx, domain.CreateLocationRequest{DealershipID: harbor.ID.String(), Name: "Sneaky"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.UpdateLocation(ctx, "12345", domain.UpdateLocationRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateLocation(as(principal.RoleAdmin, sunrise.ID), domain.CreateLocationRequest{Name: "Nope"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	all, err := f.svc.ListLocations(asSuperAdmin())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSuperAdminCreatesLocationForDealership(t *testing.T) {
	f := newFixture(t)
	res := f.createDealership(t, "Sunrise", "owner@sunrise.test")

	loc, err := f.svc.CreateLocation(asSuperAdmin(), domain.CreateLocationRequest{DealershipID: res.ID.String(), Name: "East"})
	require.NoError(t, err)
	assert.Equal(t, res.ID, loc.DealershipID)

	_, err = f.svc.CreateLocation(asSuperAdmin(), domain.CreateLocationRequest{Name: "Floating"})
	assert.ErrorIs(t, err, domain.ErrInvalidDealership)
}

func TestListRolesFallsBackToCatalog(t *testing.T) {
	f := newFixture(t)
	roles, err := f.svc.ListRoles(as(principal.RoleUser, 1))
	require.NoError(t, err)
	require.Len(t, roles, 4)
	assert.Equal(t, "super_admin", roles[0].Name)
}

func TestIntakeDealershipFallsBackToOldest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IntakeDealership(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrNoDealershipConfigured)

	first := f.createDealership(t, "First", "owner@first.test")
	f.clk.Advance(time.Hour)
	second := f.createDealership(t, "Second", "owner@second.test")

	got, err := f.svc.IntakeDealership(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = f.svc.IntakeDealership(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	got, err = f.svc.IntakeDealership(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
