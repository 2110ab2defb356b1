package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/fiberline/ispbill/billing"
	"github.com/fiberline/ispbill/installation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	tenant = "tenant-1"
	actor  = "cashier-1"
)

type fixture struct {
	store     *memStore
	lifecycle *Lifecycle
	now       time.Time
}

func newFixture(t *testing.T, now time.Time, rejectOverlap bool) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), now: now}
	lc, err := NewLifecycle(LifecycleOptions{
		Store: f.store,
		Plans: fakePlans{
			"fiber-100": {ID: "fiber-100", TenantID: tenant, Name: "Fiber 100", Price: decimal.NewFromInt(1000), IsActive: true},
			"legacy":    {ID: "legacy", TenantID: tenant, Name: "Legacy", Price: decimal.NewFromInt(500), IsActive: false},
			"other":     {ID: "other", TenantID: "tenant-2", Name: "Other", Price: decimal.NewFromInt(100), IsActive: true},
		},
		Installations: fakeInstallations{
			"inst-1": {ID: "inst-1", TenantID: tenant, CustomerID: "cust-1"},
			"inst-2": {ID: "inst-2", TenantID: tenant, CustomerID: "cust-2"},
		},
		Logger:        zap.NewNop(),
		Now:           func() time.Time { return f.now },
		RejectOverlap: rejectOverlap,
	})
	require.NoError(t, err)
	f.lifecycle = lc
	return f
}

func oneMonth(installationID string) Request {
	return Request{InstallationID: installationID, PlanID: "fiber-100", Type: billing.TypeOneMonth}
}

func TestNewLifecycleValidatesOptions(t *testing.T) {
	_, err := NewLifecycle(LifecycleOptions{})
	require.Error(t, err)

	_, err = NewLifecycle(LifecycleOptions{Store: newMemStore(), Plans: fakePlans{}, Installations: fakeInstallations{}})
	require.Error(t, err)
}

func TestSubscribeStartsNow(t *testing.T) {
	f := newFixture(t, t0, false)

	sub, err := f.lifecycle.Subscribe(context.Background(), tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	assert.Equal(t, StateActive, sub.Status)
	assert.Equal(t, t0, sub.StartDate)
	assert.Equal(t, t0.Add(30*24*time.Hour), sub.EndDate)
	assert.True(t, sub.DaysAdded.Equal(decimal.NewFromInt(30)))
	assert.True(t, sub.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, actor, sub.CreatedBy)
	assert.Equal(t, tenant, sub.TenantID)
	assert.Equal(t, installation.StatusActive, f.store.installationStatus("inst-1"))
}

func TestSubscribeChainsAfterLatest(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	first, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	second, err := f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1",
		PlanID:         "fiber-100",
		Type:           billing.TypeFifteenDays,
	})
	require.NoError(t, err)
	assert.Equal(t, first.EndDate, second.StartDate)
	assert.Equal(t, first.EndDate.Add(15*24*time.Hour), second.EndDate)
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(500)))
}

func TestSubscribeAfterLapseStartsNow(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	_, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	f.now = t0.Add(45 * 24 * time.Hour)
	sub, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, f.now, sub.StartDate)
}

func TestSubscribeCustomScenario(t *testing.T) {
	f := newFixture(t, t0, false)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sub, err := f.lifecycle.Subscribe(context.Background(), tenant, actor, Request{
		InstallationID: "inst-1",
		PlanID:         "fiber-100",
		Type:           billing.TypeCustom,
		Amount:         decimal.NewFromInt(150),
		StartDate:      &start,
	})
	require.NoError(t, err)
	assert.True(t, sub.DaysAdded.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), sub.EndDate)
	assert.True(t, sub.Amount.Equal(decimal.NewFromInt(150)))
}

func TestPreviewMatchesSubscribe(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()
	req := Request{
		InstallationID: "inst-1",
		PlanID:         "fiber-100",
		Type:           billing.TypeCustom,
		Amount:         decimal.NewFromInt(100),
	}

	q, err := f.lifecycle.Preview(ctx, tenant, req)
	require.NoError(t, err)
	assert.Empty(t, f.store.subs)
	assert.Equal(t, installation.Status(""), f.store.installationStatus("inst-1"))

	sub, err := f.lifecycle.Subscribe(ctx, tenant, actor, req)
	require.NoError(t, err)
	assert.Equal(t, q.StartDate, sub.StartDate)
	assert.Equal(t, q.EndDate, sub.EndDate)
	assert.True(t, q.DaysAdded.Equal(sub.DaysAdded))
	assert.True(t, q.AmountCharged.Equal(sub.Amount))
	assert.Equal(t, billing.Breakdown{Days: 3}, q.Breakdown)
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	_, err := f.lifecycle.Subscribe(ctx, tenant, actor, Request{InstallationID: "inst-1", PlanID: "missing", Type: billing.TypeOneMonth})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, Request{InstallationID: "inst-1", PlanID: "other", Type: billing.TypeOneMonth})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, Request{InstallationID: "inst-1", PlanID: "legacy", Type: billing.TypeOneMonth})
	var inactiveErr *InactivePlanError
	assert.ErrorAs(t, err, &inactiveErr)

	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-9"))
	assert.ErrorIs(t, err, ErrInstallationNotFound)

	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, Request{InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeCustom})
	var amountErr *billing.InvalidCustomAmountError
	assert.ErrorAs(t, err, &amountErr)

	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, Request{InstallationID: "inst-1", PlanID: "fiber-100", Type: "weekly"})
	var typeErr *billing.UnknownTypeError
	assert.ErrorAs(t, err, &typeErr)

	// a cent on a 1000 plan buys less than a minute
	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1",
		PlanID:         "fiber-100",
		Type:           billing.TypeCustom,
		Amount:         decimal.RequireFromString("0.01"),
	})
	assert.ErrorAs(t, err, &amountErr)

	assert.Empty(t, f.store.subs)
}

func TestGetAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	sub, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	f.now = sub.EndDate.Add(time.Second)
	got, err := f.lifecycle.Get(ctx, tenant, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, got.Status)
	assert.Equal(t, StateExpired, f.store.status(sub.ID))
	assert.Equal(t, installation.StatusInactive, f.store.installationStatus("inst-1"))

	_, err = f.lifecycle.Get(ctx, "tenant-2", sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireAlreadyExpiredIsNoop(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	sub, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	f.now = sub.EndDate.Add(time.Hour)
	_, changed, err := f.lifecycle.Expire(ctx, tenant, sub.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// mark the installation so a recompute would be visible
	f.store.setInstallationStatus("inst-1", installation.StatusActive)

	got, changed, err := f.lifecycle.Expire(ctx, tenant, sub.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StateExpired, got.Status)
	assert.Equal(t, installation.StatusActive, f.store.installationStatus("inst-1"))
}

func TestCancel(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	sub, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	cancelled, err := f.lifecycle.Cancel(ctx, tenant, "admin-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, cancelled.Status)
	assert.Equal(t, installation.StatusInactive, f.store.installationStatus("inst-1"))

	again, err := f.lifecycle.Cancel(ctx, tenant, "admin-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, again.Status)

	_, err = f.lifecycle.Cancel(ctx, tenant, "admin-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelDueSubscriptionExpiresIt(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	sub, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	f.now = sub.EndDate.Add(time.Minute)
	_, err = f.lifecycle.Cancel(ctx, tenant, "admin-1", sub.ID)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StateExpired, transitionErr.From)
	assert.Equal(t, StateExpired, f.store.status(sub.ID))
}

func TestLatestIsGreatestEndDate(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	longStart := t0.Add(10 * 24 * time.Hour)
	long, err := f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeOneMonth, StartDate: &longStart,
	})
	require.NoError(t, err)

	shortStart := t0
	short, err := f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeFifteenDays, StartDate: &shortStart,
	})
	require.NoError(t, err)

	latest, err := f.lifecycle.Latest(ctx, tenant, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, long.ID, latest.ID)

	_, err = f.lifecycle.Cancel(ctx, tenant, actor, long.ID)
	require.NoError(t, err)

	latest, err = f.lifecycle.Latest(ctx, tenant, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, long.ID, latest.ID)
	assert.Equal(t, StateCancelled, latest.Status)

	// a cancelled period does not push back the next purchase
	next, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, short.EndDate, next.StartDate)

	none, err := f.lifecycle.Latest(ctx, tenant, "inst-2")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListByInstallationExpiresDue(t *testing.T) {
	f := newFixture(t, t0, false)
	ctx := context.Background()

	first, err := f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeFifteenDays,
	})
	require.NoError(t, err)
	gapStart := first.EndDate.Add(5 * 24 * time.Hour)
	second, err := f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeOneMonth, StartDate: &gapStart,
	})
	require.NoError(t, err)

	f.now = first.EndDate.Add(time.Hour)
	subs, err := f.lifecycle.ListByInstallation(ctx, tenant, "inst-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].ID)
	assert.Equal(t, StateActive, subs[0].Status)
	assert.Equal(t, StateExpired, subs[1].Status)
	assert.Equal(t, installation.StatusInactive, f.store.installationStatus("inst-1"))
}

func TestRejectOverlap(t *testing.T) {
	f := newFixture(t, t0, true)
	ctx := context.Background()

	first, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)

	inside := t0.Add(10 * 24 * time.Hour)
	_, err = f.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeOneMonth, StartDate: &inside,
	})
	var overlapErr *SubscriptionOverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, first.ID, overlapErr.ExistingID)

	chained, err := f.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, first.EndDate, chained.StartDate)

	// overlap is allowed when the option is off
	g := newFixture(t, t0, false)
	_, err = g.lifecycle.Subscribe(ctx, tenant, actor, oneMonth("inst-1"))
	require.NoError(t, err)
	_, err = g.lifecycle.Subscribe(ctx, tenant, actor, Request{
		InstallationID: "inst-1", PlanID: "fiber-100", Type: billing.TypeOneMonth, StartDate: &inside,
	})
	require.NoError(t, err)
}
