package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/authorization"
	"github.com/smallbiznis/dealflow/internal/clock"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	dealershiprepo "github.com/smallbiznis/dealflow/internal/dealership/repository"
	"github.com/smallbiznis/dealflow/internal/lead/domain"
	"github.com/smallbiznis/dealflow/internal/lead/repository"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/dealflow/internal/notification/repository"
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
	svc    domain.Service
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
	notifs notificationdomain.Repository
}

type tenant struct {
	id       snowflake.ID
	location snowflake.ID
	owner    userdomain.User
	seller   userdomain.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&dealershipdomain.Dealership{},
		&dealershipdomain.Location{},
		&userdomain.User{},
		&userdomain.UserLocation{},
		&domain.Lead{},
		&notificationdomain.Notification{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))
	notifs := notificationrepo.Provide()

	svc := New(Params{
		DB:               conn,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            clk,
		Repo:             repository.Provide(),
		DealershipRepo:   dealershiprepo.Provide(),
		UserRepo:         userrepo.Provide(),
		NotificationRepo: notifs,
		Authz:            authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
	})
	return fixture{svc: svc, db: conn, node: node, clk: clk, notifs: notifs}
}

func (f fixture) seedTenant(t *testing.T, name string) tenant {
	t.Helper()
	ctx := context.Background()
	now := f.clk.Now()

	d := dealershipdomain.Dealership{ID: f.node.Generate(), Name: name, Slug: name, Status: "active", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.db.Create(&d).Error)
	loc := dealershipdomain.Location{ID: f.node.Generate(), DealershipID: d.ID, Name: "Main", IsDefault: true, Status: "active", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.db.Create(&loc).Error)

	users := userrepo.Provide()
	owner := userdomain.User{ID: f.node.Generate(), DealershipID: &d.ID, Role: "principal", Name: "Pat Owner", Email: name + "-owner@test.dev", PasswordHash: "x", Status: "active", CreatedAt: now, UpdatedAt: now}
	seller := userdomain.User{ID: f.node.Generate(), DealershipID: &d.ID, Role: "user", Name: "Sam Seller", Email: name + "-seller@test.dev", PasswordHash: "x", Status: "active", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Insert(ctx, f.db, &owner))
	require.NoError(t, users.Insert(ctx, f.db, &seller))

	return tenant{id: d.ID, location: loc.ID, owner: owner, seller: seller}
}

func asUser(u userdomain.User) context.Context {
	return principal.WithPrincipal(context.Background(), u.Principal())
}

func strPtr(s string) *string { return &s }

func TestCreateLeadNotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")

	lead, err := f.svc.Create(asUser(tn.owner), domain.CreateLeadRequest{
		FirstName:       "John",
		LastName:        "Doe",
		Source:          "Web Inquiry",
		VehicleInterest: "2024 Ford F-150",
		LocationID:      strPtr(tn.location.String()),
		AssignedUserID:  strPtr(tn.seller.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, lead.Status)
	assert.Equal(t, tn.id, lead.DealershipID)
	assert.Equal(t, "Sam Seller", lead.AssignedUserName)
	assert.Equal(t, "Main", lead.LocationName)

	notes, err := f.notifs.ListByUser(context.Background(), f.db, tn.seller.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, notificationdomain.TypeLeadAssigned, notes[0].Type)
	assert.Equal(t, "/leads/"+lead.ID.String(), notes[0].Link)
}

func TestCreateLeadSelfAssignmentIsSilent(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")

	_, err := f.svc.Create(asUser(tn.seller), domain.CreateLeadRequest{
		FirstName:      "Jane",
		AssignedUserID: strPtr(tn.seller.ID.String()),
	})
	require.NoError(t, err)

	notes, err := f.notifs.ListByUser(context.Background(), f.db, tn.seller.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCreateLeadValidatesReferences(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	other := f.seedTenant(t, "harbor")
	ctx := asUser(tn.owner)

	_, err := f.svc.Create(ctx, domain.CreateLeadRequest{FirstName: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidFirstName)

	_, err = f.svc.Create(ctx, domain.CreateLeadRequest{FirstName: "A", LocationID: strPtr(other.location.String())})
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)

	_, err = f.svc.Create(ctx, domain.CreateLeadRequest{FirstName: "A", AssignedUserID: strPtr(other.seller.ID.String())})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignee)

	superAdmin := principal.WithPrincipal(context.Background(), principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin})
	_, err = f.svc.Create(superAdmin, domain.CreateLeadRequest{FirstName: "A"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestGetLeadChecksExistenceBeforeOwnership(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	other := f.seedTenant(t, "harbor")

	lead, err := f.svc.Create(asUser(other.owner), domain.CreateLeadRequest{FirstName: "Robert"})
	require.NoError(t, err)

	_, err = f.svc.Get(asUser(tn.owner), "424242")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(asUser(tn.owner), lead.ID.String())
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	got, err := f.svc.Get(asUser(other.seller), lead.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.FirstName)
}

func TestListLeadsIsScopedAndNewestFirst(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	other := f.seedTenant(t, "harbor")

	first, err := f.svc.Create(asUser(tn.owner), domain.CreateLeadRequest{FirstName: "First"})
	require.NoError(t, err)
	f.clk.Advance(time.Minute)
	second, err := f.svc.Create(asUser(tn.owner), domain.CreateLeadRequest{FirstName: "Second", AssignedUserID: strPtr(tn.seller.ID.String())})
	require.NoError(t, err)
	_, err = f.svc.Create(asUser(other.owner), domain.CreateLeadRequest{FirstName: "Elsewhere"})
	require.NoError(t, err)

	leads, err := f.svc.List(asUser(tn.seller), domain.ListLeadsRequest{})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, second.ID, leads[0].ID)
	assert.Equal(t, first.ID, leads[1].ID)

	mine, err := f.svc.List(asUser(tn.seller), domain.ListLeadsRequest{AssignedUserID: tn.seller.ID.String()})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	superAdmin := principal.WithPrincipal(context.Background(), principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin})
	none, err := f.svc.List(superAdmin, domain.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.List(asUser(tn.seller), domain.ListLeadsRequest{Status: "won"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdateLeadReassignmentNotifiesNewAssignee(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	ctx := asUser(tn.owner)

	lead, err := f.svc.Create(ctx, domain.CreateLeadRequest{FirstName: "Jane", LastName: "Smith"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, lead.ID.String(), domain.UpdateLeadRequest{
		Status:         strPtr(domain.StatusContacted),
		AssignedUserID: strPtr(tn.seller.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusContacted, updated.Status)
	assert.Equal(t, tn.seller.ID, *updated.AssignedUserID)

	_, err = f.svc.Update(ctx, lead.ID.String(), domain.UpdateLeadRequest{
		Status:         strPtr(domain.StatusWorking),
		AssignedUserID: strPtr(tn.seller.ID.String()),
	})
	require.NoError(t, err)

	notes, err := f.notifs.ListByUser(context.Background(), f.db, tn.seller.ID, 10)
	require.NoError(t, err)
	assert.Len(t, notes, 1, "unchanged assignee is not notified again")

	_, err = f.svc.Update(ctx, lead.ID.String(), domain.UpdateLeadRequest{Status: strPtr("lost")})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdateLeadKeepsAbsentFields(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	ctx := asUser(tn.owner)

	lead, err := f.svc.Create(ctx, domain.CreateLeadRequest{
		FirstName:       "John",
		LastName:        "Doe",
		Source:          "Walk-in",
		VehicleInterest: "2024 Ford F-150",
		AssignedUserID:  strPtr(tn.seller.ID.String()),
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, lead.ID.String(), domain.UpdateLeadRequest{
		Email:  strPtr("j@x.com"),
		Phone:  strPtr("555"),
		Status: strPtr(domain.StatusContacted),
	})
	require.NoError(t, err)
	assert.Equal(t, "j@x.com", updated.Email)
	assert.Equal(t, "555", updated.Phone)
	assert.Equal(t, domain.StatusContacted, updated.Status)
	assert.Equal(t, "John", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)
	assert.Equal(t, "Walk-in", updated.Source)
	assert.Equal(t, "2024 Ford F-150", updated.VehicleInterest)
	require.NotNil(t, updated.AssignedUserID)
	assert.Equal(t, tn.seller.ID, *updated.AssignedUserID)

	_, err = f.svc.Update(ctx, lead.ID.String(), domain.UpdateLeadRequest{FirstName: strPtr("  ")})
	assert.ErrorIs(t, err, domain.ErrInvalidFirstName)

	cleared, err := f.svc.Update(ctx, lead.ID.String(), domain.UpdateLeadRequest{AssignedUserID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedUserID)
	assert.Equal(t, "j@x.com", cleared.Email)
}

func TestUpdateStatusMovesAnyDirection(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	ctx := asUser(tn.seller)

	lead, err := f.svc.Create(ctx, domain.CreateLeadRequest{FirstName: "Jane"})
	require.NoError(t, err)

	for _, status := range []string{domain.StatusClosed, domain.StatusNew, domain.StatusWorking} {
		updated, err := f.svc.UpdateStatus(ctx, lead.ID.String(), status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	_, err = f.svc.UpdateStatus(ctx, lead.ID.String(), "archived")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestIntakeDefaultsSource(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")

	lead, err := f.svc.Intake(context.Background(), tn.id, domain.IntakeLeadRequest{FirstName: "Web", Email: "web@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceWebhook, lead.Source)
	assert.Equal(t, domain.StatusNew, lead.Status)

	_, err = f.svc.Intake(context.Background(), tn.id, domain.IntakeLeadRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidFirstName)
}

func TestIntakeNotifiesPrincipal(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")

	lead, err := f.svc.Intake(context.Background(), tn.id, domain.IntakeLeadRequest{
		FirstName: "Web", LastName: "Lead", Source: "AutoTrader",
	})
	require.NoError(t, err)

	notes, err := f.notifs.ListByUser(context.Background(), f.db, tn.owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, notificationdomain.TypeLeadReceived, notes[0].Type)
	assert.Equal(t, "New AutoTrader lead: Web Lead", notes[0].Message)
	assert.Equal(t, "/leads/"+lead.ID.String(), notes[0].Link)

	notes, err = f.notifs.ListByUser(context.Background(), f.db, tn.seller.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestIntakeNameFallsBack(t *testing.T) {
	f := newFixture(t)
	tn := f.seedTenant(t, "sunrise")
	ctx := context.Background()

	cases := []struct {
		req         domain.IntakeLeadRequest
		first, last string
	}{
		{domain.IntakeLeadRequest{LastName: "Doe", Email: "doe@example.com"}, "Doe", ""},
		{domain.IntakeLeadRequest{Email: "buyer@example.com"}, "buyer@example.com", ""},
		{domain.IntakeLeadRequest{Phone: "555-0100"}, "555-0100", ""},
	}
	for _, tc := range cases {
		lead, err := f.svc.Intake(ctx, tn.id, tc.req)
		require.NoError(t, err)
		assert.Equal(t, tc.first, lead.FirstName)
		assert.Equal(t, tc.last, lead.LastName)
	}

	_, err := f.svc.Intake(ctx, tn.id, domain.IntakeLeadRequest{Source: "Web", VehicleInterest: "F-150"})
	assert.ErrorIs(t, err, domain.ErrInvalidFirstName)
}
