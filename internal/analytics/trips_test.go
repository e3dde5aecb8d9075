package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func timePtr(ms int64) *time.Time {
	t := time.UnixMilli(ms)
	return &t
}

func TestEfficiency(t *testing.T) {
	tests := []struct {
		name       string
		totalKM    int
		fuelLiters float64
		expected   *float64
	}{
		{"150 km on 10 l", 150, 10, floatPtr(15)},
		{"rounds to two decimals", 100, 3, floatPtr(33.33)},
		{"exact quarter", 1, 0.8, floatPtr(1.25)},
		{"zero distance", 0, 10, floatPtr(0)},
		{"zero fuel", 150, 0, nil},
		{"negative fuel", 150, -4, nil},
		{"nan fuel", 150, math.NaN(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Efficiency(tt.totalKM, tt.fuelLiters)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
		})
	}
}

func TestDriverTrips(t *testing.T) {
	logs := []models.DailyLog{
		{DriverID: "u1", TotalKM: intPtr(100), Efficiency: floatPtr(10), RevenueCash: 100, Timestamp: timePtr(1000)},
		{DriverID: "u2", TotalKM: intPtr(999), Efficiency: floatPtr(99), RevenueCash: 999, Timestamp: timePtr(5000)},
		{DriverID: "u1", Status: models.LogStatusActive},
		{DriverID: "u1", TotalKM: intPtr(50), Efficiency: floatPtr(20), RevenueDigital: 50.5, Timestamp: timePtr(3000)},
	}

	stats := DriverTrips(logs, "u1")
	require.Len(t, stats.Logs, 3)
	assert.Equal(t, int64(3000), stats.Logs[0].TimestampMillis())
	assert.Equal(t, int64(1000), stats.Logs[1].TimestampMillis())
	assert.Nil(t, stats.Logs[2].Timestamp, "missing timestamp sorts as oldest")

	assert.Equal(t, 150, stats.TotalKM)
	assert.InDelta(t, 150.5, stats.TotalRevenue, 1e-9)
	// The clock-in entry has no efficiency and still counts in the average: (10+20+0)/3.
	assert.InDelta(t, 10.0, stats.AvgEfficiency, 1e-9)
}

func TestDriverTrips_NoLogs(t *testing.T) {
	stats := DriverTrips(nil, "u1")
	assert.NotNil(t, stats.Logs)
	assert.Empty(t, stats.Logs)
	assert.Zero(t, stats.AvgEfficiency)
}

func TestTripStatus(t *testing.T) {
	assert.Equal(t, CompletedStatus, TripStatus(models.DailyLog{}))
	assert.Equal(t, "active", TripStatus(models.DailyLog{Status: models.LogStatusActive}))
}

func TestActiveDrivers(t *testing.T) {
	withName := models.DailyLog{ID: primitive.NewObjectID(), DriverID: "u1", DriverName: "Ravi", Status: models.LogStatusActive}
	withoutName := models.DailyLog{ID: primitive.NewObjectID(), DriverID: "u2", Status: models.LogStatusActive}
	closed := models.DailyLog{ID: primitive.NewObjectID(), DriverID: "u3", DriverName: "Old", Status: "completed"}
	noStatus := models.DailyLog{ID: primitive.NewObjectID(), DriverID: "u4"}

	active := ActiveDrivers([]models.DailyLog{withName, closed, withoutName, noStatus})
	require.Len(t, active, 2)
	assert.Equal(t, "Ravi", active[0].DriverName)
	assert.Equal(t, withName.ID.Hex(), active[0].LogID)
	assert.Equal(t, UnknownDriver, active[1].DriverName)
	assert.Equal(t, "u2", active[1].DriverID)
}
