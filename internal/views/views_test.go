package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
	"to-dogether/internal/repository"
)

var now = time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)

type fixture struct {
	store *repository.MemoryStore
	svc   *Service
	alice *models.User
	bob   *models.User
	solo  *models.User // paired, partner not joined yet
	loner *models.User // unpaired
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: repository.NewMemoryStore()}
	require.NoError(t, f.store.RunTransaction(ctx, func(q repository.Queries) error {
		ours := &models.Couple{InviteToken: "1111111111111111", IsActive: true}
		waiting := &models.Couple{InviteToken: "2222222222222222", IsActive: true}
		require.NoError(t, q.CreateCouple(ctx, ours))
		require.NoError(t, q.CreateCouple(ctx, waiting))

		mk := func(name string, coupleID *int) *models.User {
			u := &models.User{Username: name, PasswordHash: "x", ColorCode: "#3B82F6", CoupleID: coupleID}
			require.NoError(t, q.CreateUser(ctx, u))
			return u
		}
		f.alice = mk("alice", &ours.ID)
		f.bob = mk("bob", &ours.ID)
		f.solo = mk("solo", &waiting.ID)
		f.loner = mk("loner", nil)
		return nil
	}))
	f.svc = NewService(f.store, func() time.Time { return now })
	return f
}

func (f *fixture) list(t *testing.T, owner *models.User, title string, shared bool, created time.Time) *models.TodoList {
	t.Helper()
	l := &models.TodoList{OwnerID: owner.ID, Title: title, IsShared: shared, CreatedAt: created, UpdatedAt: created}
	require.NoError(t, f.store.RunTransaction(context.Background(), func(q repository.Queries) error {
		return q.CreateList(context.Background(), l)
	}))
	return l
}

func (f *fixture) item(t *testing.T, l *models.TodoList, order int, status models.Status, severity models.Severity, updated time.Time) {
	t.Helper()
	it := &models.TodoItem{TodoListID: l.ID, Title: "task", Status: status, Severity: severity, Order: order, UpdatedAt: updated}
	require.NoError(t, f.store.RunTransaction(context.Background(), func(q repository.Queries) error {
		return q.CreateItem(context.Background(), it)
	}))
}

func TestDashboardStatsScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	aliceList := f.list(t, f.alice, "Home", false, now)
	f.item(t, aliceList, 1, models.StatusDone, models.SeverityLow, now.Add(-time.Hour))
	f.item(t, aliceList, 2, models.StatusPending, models.SeverityMedium, now)
	f.item(t, aliceList, 3, models.StatusPending, models.SeverityLow, now)

	bobList := f.list(t, f.bob, "Garage", false, now)
	f.item(t, bobList, 1, models.StatusPending, models.SeverityHigh, now)
	f.item(t, bobList, 2, models.StatusPending, models.SeverityMedium, now)

	stats, err := f.svc.DashboardStats(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalTasks)
	assert.Equal(t, 1, stats.CompletedToday)
	assert.Equal(t, 4, stats.PendingTasks)
	assert.Equal(t, 1, stats.HighPriorityTasks)
	assert.Equal(t, 3, stats.MyTasks)
	assert.Equal(t, 2, stats.PartnerTasks)
	require.NotNil(t, stats.PartnerUsername)
	assert.Equal(t, "bob", *stats.PartnerUsername)

	fromBob, err := f.svc.DashboardStats(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fromBob.MyTasks)
	assert.Equal(t, 3, fromBob.PartnerTasks)
}

func TestDashboardCompletedTodayWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.list(t, f.alice, "Home", false, now)

	midnight := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f.item(t, l, 1, models.StatusDone, models.SeverityLow, midnight)
	f.item(t, l, 2, models.StatusDone, models.SeverityLow, midnight.Add(-time.Nanosecond))
	f.item(t, l, 3, models.StatusDone, models.SeverityLow, midnight.AddDate(0, 0, 1))
	// 23:30 the previous evening in UTC-1 is 00:30 today in UTC.
	f.item(t, l, 4, models.StatusDone, models.SeverityLow, time.Date(2025, 2, 28, 23, 30, 0, 0, time.FixedZone("UTC-1", -3600)))

	stats, err := f.svc.DashboardStats(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CompletedToday)
	assert.Zero(t, stats.PendingTasks)
}

func TestDashboardWithoutPartner(t *testing.T) {
	f := newFixture(t)
	stats, err := f.svc.DashboardStats(context.Background(), f.solo.ID)
	require.NoError(t, err)
	assert.Nil(t, stats.PartnerUsername)
	assert.Zero(t, stats.TotalTasks)
}

func TestUnpairedCallerIsRejectedEverywhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.DashboardStats(ctx, f.loner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotPaired)
	_, err = f.svc.PartnerOverview(ctx, f.loner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotPaired)
	_, err = f.svc.RecentActivities(ctx, f.loner.ID, 10)
	assert.ErrorIs(t, err, apperr.ErrNotPaired)
}

func TestPartnerOverview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	later := f.list(t, f.bob, "Later", true, now.Add(time.Hour))
	first := f.list(t, f.bob, "First", false, now)
	f.item(t, first, 2, models.StatusPending, models.SeverityLow, now)
	f.item(t, first, 1, models.StatusPending, models.SeverityLow, now)
	f.list(t, f.alice, "Mine", false, now)

	overview, err := f.svc.PartnerOverview(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", overview.Partner.Username)
	require.Len(t, overview.Lists, 2)

	assert.Equal(t, "First", overview.Lists[0].Title)
	assert.False(t, overview.Lists[0].CanEdit)
	require.Len(t, overview.Lists[0].Items, 2)
	assert.Equal(t, 1, overview.Lists[0].Items[0].Order)
	assert.Equal(t, 2, overview.Lists[0].Items[1].Order)

	assert.Equal(t, later.ID, overview.Lists[1].ID)
	assert.True(t, overview.Lists[1].CanEdit)
	assert.NotNil(t, overview.Lists[1].Items)

	_, err = f.svc.PartnerOverview(ctx, f.solo.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestRecentActivities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.RunTransaction(ctx, func(q repository.Queries) error {
		for i := 0; i < 60; i++ {
			uid := f.alice.ID
			if i%3 == 0 {
				uid = f.bob.ID
			}
			a := &models.Activity{UserID: uid, Message: "m", CreatedAt: now.Add(time.Duration(i) * time.Second)}
			require.NoError(t, q.CreateActivity(ctx, a))
		}
		return q.CreateActivity(ctx, &models.Activity{UserID: f.solo.ID, Message: "other couple", CreatedAt: now})
	}))

	res, err := f.svc.RecentActivities(ctx, f.alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, res.Activities, DefaultActivityLimit)
	assert.Equal(t, 60, res.TotalCount)
	assert.True(t, res.Activities[0].CreatedAt.After(res.Activities[1].CreatedAt))
	assert.Equal(t, "alice", res.Activities[0].Username)
	assert.Equal(t, "bob", res.Activities[2].Username)

	res, err = f.svc.RecentActivities(ctx, f.bob.ID, 500)
	require.NoError(t, err)
	assert.Len(t, res.Activities, MaxActivityLimit)

	res, err = f.svc.RecentActivities(ctx, f.solo.ID, 5)
	require.NoError(t, err)
	assert.Len(t, res.Activities, 1)
	assert.Equal(t, 1, res.TotalCount)
}

func TestClampActivityLimit(t *testing.T) {
	assert.Equal(t, 10, ClampActivityLimit(-3))
	assert.Equal(t, 10, ClampActivityLimit(0))
	assert.Equal(t, 7, ClampActivityLimit(7))
	assert.Equal(t, 50, ClampActivityLimit(51))
}
