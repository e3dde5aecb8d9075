package notify

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/db/dbtest"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockPublisher is a mock implementation of Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, payload []byte) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

func (m *MockPublisher) Close() {
	m.Called()
}

// recordingPublisher keeps every payload it receives.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *recordingPublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	p.payloads = append(p.payloads, payload)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) last(t *testing.T) Summary {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.payloads)
	var s Summary
	require.NoError(t, json.Unmarshal(p.payloads[len(p.payloads)-1], &s))
	return s
}

func sampleSnapshot() fleet.Snapshot {
	asha := models.Driver{ID: primitive.NewObjectID(), Name: "Asha Rao", Email: "a@x.com"}
	return fleet.Snapshot{
		Drivers: []models.Driver{asha},
		DailyLogs: []models.DailyLog{
			{DriverID: asha.ID.Hex(), FuelCost: 10.4, RevenueCash: 100, Status: models.LogStatusActive},
			{DriverID: asha.ID.Hex(), FuelCost: 10.4, RevenueDigital: 50},
		},
		Vehicles: []models.Vehicle{
			{TotalKM: 10000, NextServiceKM: 10000},
			{TotalKM: 9600, NextServiceKM: 10000},
			{TotalKM: 100, NextServiceKM: 10000},
		},
		CurrentDriver: &asha,
	}
}

func TestSummarize(t *testing.T) {
	snap := sampleSnapshot()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))

	s := Summarize(snap, at)
	assert.Equal(t, 1, s.Drivers)
	assert.Equal(t, 1, s.ActiveDrivers)
	assert.Equal(t, 2, s.DailyLogs)
	assert.Equal(t, 3, s.Vehicles)
	assert.Equal(t, 1, s.OverdueVehicles)
	assert.Equal(t, 1, s.DueSoonVehicles)
	assert.Equal(t, 21, s.FuelExpense)
	assert.Equal(t, 150, s.Revenue)
	assert.Equal(t, snap.CurrentDriver.ID.Hex(), s.CurrentDriverID)
	assert.Equal(t, time.UTC, s.At.Location())
}

func TestNotifier_Publish(t *testing.T) {
	logger, _ := test.NewNullLogger()
	publisher := new(MockPublisher)
	publisher.On("Publish", "fleetflow/snapshot", mock.MatchedBy(func(payload []byte) bool {
		var s Summary
		return json.Unmarshal(payload, &s) == nil && s.Vehicles == 3
	})).Return(nil)

	n := NewNotifier(publisher, "fleetflow/snapshot", logger)
	n.Publish(sampleSnapshot())

	publisher.AssertExpectations(t)
}

func TestNotifier_PublishFailureIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

	n := NewNotifier(publisher, "t", logger)
	n.Publish(fleet.Snapshot{})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestNotifier_AttachFollowsAggregator(t *testing.T) {
	logger, _ := test.NewNullLogger()
	vehicles := dbtest.NewMemorySource[models.Vehicle](db.CollectionVehicles, models.Vehicle{TotalKM: 10000, NextServiceKM: 10000})
	agg := fleet.NewAggregator(fleet.Sources{
		Drivers:   dbtest.NewMemorySource[models.Driver](db.CollectionDrivers),
		DailyLogs: dbtest.NewMemoryLogs(),
		Vehicles:  vehicles,
	}, logger)
	defer agg.Close()

	publisher := &recordingPublisher{}
	detach := NewNotifier(publisher, "t", logger).Attach(agg)
	defer detach()

	agg.HandleIdentity(&models.Identity{UID: "u", Email: "a@x.com"})
	require.Eventually(t, func() bool {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		if len(publisher.payloads) == 0 {
			return false
		}
		var s Summary
		return json.Unmarshal(publisher.payloads[len(publisher.payloads)-1], &s) == nil && s.OverdueVehicles == 1
	}, time.Second, 5*time.Millisecond)

	agg.HandleIdentity(nil)
	s := publisher.last(t)
	assert.Zero(t, s.Vehicles)
	assert.False(t, s.Loading)
}
