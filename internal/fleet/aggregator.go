// Package fleet merges the drivers, daily_logs and vehicles subscriptions into
// one read model whose lifetime follows the signed-in identity.
package fleet

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/live"
	"github.com/ukydev/fleetflow/internal/models"
)

// Snapshot is the unified fleet state. Lists are replaced wholesale on every
// delivery and must be treated as read-only.
type Snapshot struct {
	Drivers       []models.Driver   `json:"drivers"`
	DailyLogs     []models.DailyLog `json:"dailyLogs"`
	Vehicles      []models.Vehicle  `json:"vehicles"`
	CurrentDriver *models.Driver    `json:"currentDriver"`
	Loading       bool              `json:"loading"`
}

func emptySnapshot(loading bool) Snapshot {
	return Snapshot{
		Drivers:   []models.Driver{},
		DailyLogs: []models.DailyLog{},
		Vehicles:  []models.Vehicle{},
		Loading:   loading,
	}
}

// Reader exposes the current snapshot to view consumers.
type Reader interface {
	Snapshot() Snapshot
}

// Sources are the three collections the aggregator subscribes to.
type Sources struct {
	Drivers   db.Source
	DailyLogs db.Source
	Vehicles  db.Source
}

// AuthStateNotifier is implemented by auth.Resolver.
type AuthStateNotifier interface {
	OnAuthStateChange(fn auth.Listener) func()
}

// Aggregator owns the subscriptions for the current identity and the merged snapshot.
type Aggregator struct {
	sources Sources
	logger  logrus.FieldLogger

	// lifecycle serializes identity transitions and Close.
	lifecycle sync.Mutex
	subs      []*live.Subscription
	closed    bool

	mu         sync.Mutex
	snapshot   Snapshot
	identity   *models.Identity
	generation uint64

	// dispatch keeps listener calls ordered.
	dispatch  sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
}

// NewAggregator returns an aggregator that is loading until the first
// identity transition is handled.
func NewAggregator(sources Sources, logger logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		sources:   sources,
		logger:    logger.WithField("component", "fleet"),
		snapshot:  emptySnapshot(true),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Bind follows the resolver's auth state. The returned function stops following it.
func (a *Aggregator) Bind(notifier AuthStateNotifier) func() {
	return notifier.OnAuthStateChange(a.HandleIdentity)
}

// HandleIdentity tears down the current subscriptions and, when identity is
// present, opens new ones for it. loading is cleared as soon as the three
// subscriptions have been issued, without waiting for their first delivery.
func (a *Aggregator) HandleIdentity(identity *models.Identity) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.closed {
		return
	}

	a.mu.Lock()
	a.generation++
	gen := a.generation
	if identity != nil {
		id := *identity
		a.identity = &id
	} else {
		a.identity = nil
	}
	a.snapshot = emptySnapshot(identity != nil)
	a.mu.Unlock()

	// Deliveries from the old generation are dropped, so closing outside mu
	// cannot deadlock with a delivery waiting for it.
	a.closeSubscriptions()

	if identity == nil {
		a.logger.Info("Identity absent, fleet subscriptions closed")
		a.changed()
		return
	}
	a.changed()

	a.subs = []*live.Subscription{
		live.Open(context.Background(), a.sources.Drivers, a.deliverDrivers(gen), a.logger),
		live.Open(context.Background(), a.sources.DailyLogs, a.deliverDailyLogs(gen), a.logger),
		live.Open(context.Background(), a.sources.Vehicles, a.deliverVehicles(gen), a.logger),
	}

	a.mu.Lock()
	if a.generation == gen {
		a.snapshot.Loading = false
	}
	a.mu.Unlock()
	a.logger.WithField("uid", identity.UID).Info("Fleet subscriptions opened")
	a.changed()
}

func (a *Aggregator) closeSubscriptions() {
	for _, sub := range a.subs {
		sub.Close()
	}
	a.subs = nil
}

func (a *Aggregator) deliverDrivers(gen uint64) func([]models.Driver) {
	return func(drivers []models.Driver) {
		a.mu.Lock()
		if a.generation != gen {
			a.mu.Unlock()
			return
		}
		a.snapshot.Drivers = drivers
		a.snapshot.CurrentDriver = nil
		if a.identity != nil {
			a.snapshot.CurrentDriver = FindCurrentDriver(drivers, a.identity.Email)
		}
		a.mu.Unlock()
		a.changed()
	}
}

func (a *Aggregator) deliverDailyLogs(gen uint64) func([]models.DailyLog) {
	return func(logs []models.DailyLog) {
		a.mu.Lock()
		if a.generation != gen {
			a.mu.Unlock()
			return
		}
		a.snapshot.DailyLogs = logs
		a.mu.Unlock()
		a.changed()
	}
}

func (a *Aggregator) deliverVehicles(gen uint64) func([]models.Vehicle) {
	return func(vehicles []models.Vehicle) {
		a.mu.Lock()
		if a.generation != gen {
			a.mu.Unlock()
			return
		}
		a.snapshot.Vehicles = vehicles
		a.mu.Unlock()
		a.changed()
	}
}

// Snapshot returns the current unified state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := a.snapshot
	if snap.CurrentDriver != nil {
		d := *snap.CurrentDriver
		snap.CurrentDriver = &d
	}
	return snap
}

// OnChange registers fn to be called with the latest snapshot after every
// update. Calls are sequential. fn must not call HandleIdentity or Close.
func (a *Aggregator) OnChange(fn func(Snapshot)) func() {
	a.dispatch.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.dispatch.Unlock()

	return func() {
		a.dispatch.Lock()
		delete(a.listeners, id)
		a.dispatch.Unlock()
	}
}

func (a *Aggregator) changed() {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()
	if len(a.listeners) == 0 {
		return
	}
	snap := a.Snapshot()
	for _, fn := range a.listeners {
		fn(snap)
	}
}

// Close tears down all subscriptions. Later identity transitions are ignored.
func (a *Aggregator) Close() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	a.mu.Lock()
	a.generation++
	a.mu.Unlock()
	a.closeSubscriptions()
}

// FindCurrentDriver returns the first driver whose email equals email exactly,
// or nil.
func FindCurrentDriver(drivers []models.Driver, email string) *models.Driver {
	if email == "" {
		return nil
	}
	for i := range drivers {
		if drivers[i].Email == email {
			d := drivers[i]
			return &d
		}
	}
	return nil
}
