package analytics

import (
	"math"
	"sort"

	"github.com/ukydev/fleetflow/internal/models"
)

const (
	// UnknownDriver is shown for active logs written without a driver name.
	UnknownDriver = "Unknown Driver"
	// CompletedStatus is shown in trip history for logs without a status.
	CompletedStatus = "COMPLETED"
)

// TripStatus is the status shown for l in trip history.
func TripStatus(l models.DailyLog) string {
	if l.Status == "" {
		return CompletedStatus
	}
	return l.Status
}

// Efficiency is totalKM / fuelLiters rounded to two decimals, or nil when
// fuelLiters is zero, negative or not a number.
func Efficiency(totalKM int, fuelLiters float64) *float64 {
	if !(fuelLiters > 0) || math.IsInf(fuelLiters, 0) {
		return nil
	}
	e := math.Round(float64(totalKM)/fuelLiters*100) / 100
	return &e
}

// TripStats summarizes one driver's logs for the trip history page.
type TripStats struct {
	Logs          []models.DailyLog `json:"logs"` // newest first
	TotalKM       int               `json:"totalKM"`
	TotalRevenue  float64           `json:"totalRevenue"`
	AvgEfficiency float64           `json:"avgEfficiency"`
}

// DriverTrips filters logs by driverID, newest first. Logs without a
// timestamp sort as the oldest. Missing totalKM counts as zero, and a missing
// efficiency counts as zero in the average rather than being left out.
func DriverTrips(logs []models.DailyLog, driverID string) TripStats {
	mine := []models.DailyLog{}
	for _, l := range logs {
		if l.DriverID == driverID {
			mine = append(mine, l)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].TimestampMillis() > mine[j].TimestampMillis()
	})

	stats := TripStats{Logs: mine}
	var efficiencySum float64
	for _, l := range mine {
		if l.TotalKM != nil {
			stats.TotalKM += *l.TotalKM
		}
		stats.TotalRevenue += l.Revenue()
		if l.Efficiency != nil {
			efficiencySum += *l.Efficiency
		}
	}
	if len(mine) > 0 {
		stats.AvgEfficiency = efficiencySum / float64(len(mine))
	}
	return stats
}

// ActiveDriver is one row of the realtime dashboard.
type ActiveDriver struct {
	LogID      string `json:"logId"`
	DriverID   string `json:"driverId"`
	DriverName string `json:"driverName"`
	Status     string `json:"status"`
}

// ActiveDrivers lists logs with status "active". The name comes from the log
// itself, as captured when it was written; driver records are not consulted.
func ActiveDrivers(logs []models.DailyLog) []ActiveDriver {
	active := []ActiveDriver{}
	for _, l := range logs {
		if l.Status != models.LogStatusActive {
			continue
		}
		name := l.DriverName
		if name == "" {
			name = UnknownDriver
		}
		active = append(active, ActiveDriver{
			LogID:      l.ID.Hex(),
			DriverID:   l.DriverID,
			DriverName: name,
			Status:     l.Status,
		})
	}
	return active
}
