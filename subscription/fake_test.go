package subscription

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fiberline/ispbill/installation"
	"github.com/fiberline/ispbill/plan"
	"github.com/fiberline/ispbill/spec"
)

type memStore struct {
	mu             sync.Mutex
	seq            int
	subs           map[string]Subscription
	installations  map[string]installation.Status
	failTransition map[string]error
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		subs:           make(map[string]Subscription),
		installations:  make(map[string]installation.Status),
		failTransition: make(map[string]error),
	}
}

func (m *memStore) Create(ctx context.Context, sub *Subscription, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(sub.ID) == 0 {
		m.seq++
		sub.ID = fmt.Sprintf("sub-%d", m.seq)
	}
	m.subs[sub.ID] = *sub
	m.sync(sub.TenantID, sub.InstallationID, now)
	return nil
}

func (m *memStore) Get(ctx context.Context, tenantID, id string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok || sub.TenantID != tenantID {
		return nil, nil
	}
	return &sub, nil
}

func (m *memStore) ListByInstallation(ctx context.Context, tenantID, installationID string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byInstallation(tenantID, installationID), nil
}

func (m *memStore) Latest(ctx context.Context, tenantID, installationID string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := latestOf(m.byInstallation(tenantID, installationID))
	if latest == nil {
		return nil, nil
	}
	sub := *latest
	return &sub, nil
}

func (m *memStore) ListDue(ctx context.Context, now time.Time) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(s Subscription) bool {
		return s.Status == StateActive && s.EndDate.Before(now)
	}), nil
}

func (m *memStore) ListExpiring(ctx context.Context, from, to time.Time) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(s Subscription) bool {
		return s.Status == StateActive && !s.EndDate.Before(from) && !s.EndDate.After(to)
	}), nil
}

func (m *memStore) ListStarted(ctx context.Context, now time.Time) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(s Subscription) bool {
		return s.IsCurrent(now) && m.installations[s.InstallationID] != installation.StatusActive
	}), nil
}

func (m *memStore) SyncInstallation(ctx context.Context, tenantID, installationID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sync(tenantID, installationID, now)
	return nil
}

func (m *memStore) Transition(ctx context.Context, tenantID, id string, now time.Time, fn TransitionFunc) (*Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failTransition[id]; err != nil {
		return nil, false, err
	}
	current, ok := m.subs[id]
	if !ok || current.TenantID != tenantID {
		return nil, false, ErrNotFound
	}
	changed, err := fn(&current)
	if err != nil {
		return nil, false, err
	}
	if changed {
		m.subs[id] = current
		m.sync(tenantID, current.InstallationID, now)
	}
	return &current, changed, nil
}

func (m *memStore) status(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id].Status
}

func (m *memStore) installationStatus(id string) installation.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installations[id]
}

func (m *memStore) setInstallationStatus(id string, status installation.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installations[id] = status
}

func (m *memStore) sync(tenantID, installationID string, now time.Time) {
	m.installations[installationID] = DeriveInstallationStatus(m.byInstallation(tenantID, installationID), now)
}

func (m *memStore) byInstallation(tenantID, installationID string) []Subscription {
	return m.filter(func(s Subscription) bool {
		return s.TenantID == tenantID && s.InstallationID == installationID
	})
}

func (m *memStore) filter(keep func(Subscription) bool) []Subscription {
	results := make([]Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if keep(s) {
			results = append(results, s)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].EndDate.After(results[j].EndDate)
	})
	return results
}

type fakePlans map[string]*plan.Plan

func (f fakePlans) GetByID(ctx context.Context, tenantID, id string) (*plan.Plan, error) {
	p, ok := f[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

type fakeInstallations map[string]*installation.Installation

func (f fakeInstallations) GetByID(ctx context.Context, tenantID, id string) (*installation.Installation, error) {
	inst, ok := f[id]
	if !ok || inst.TenantID != tenantID {
		return nil, nil
	}
	return inst, nil
}

func (f fakeInstallations) Contact(ctx context.Context, tenantID, id string) (*spec.Contact, error) {
	inst, ok := f[id]
	if !ok || inst.TenantID != tenantID {
		return nil, nil
	}
	return &spec.Contact{CustomerID: inst.CustomerID, Name: "Customer " + inst.CustomerID}, nil
}

type fakeProducer struct {
	mu     sync.Mutex
	events []spec.SubscriptionEvent
	err    error
}

func (p *fakeProducer) Close() {}

func (p *fakeProducer) PublishSubscriptionEvent(e *spec.SubscriptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *e)
	return nil
}

type memDeduper struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemDeduper() *memDeduper {
	return &memDeduper{keys: make(map[string]struct{})}
}

func (d *memDeduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.keys[key]; ok {
		return false, nil
	}
	d.keys[key] = struct{}{}
	return true, nil
}

func (d *memDeduper) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}
