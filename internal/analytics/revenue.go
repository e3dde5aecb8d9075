package analytics

import (
	"math"

	"github.com/ukydev/fleetflow/internal/models"
)

// DriverRevenue is one row of the revenue analytics chart.
type DriverRevenue struct {
	DriverID string `json:"driverId"`
	Name     string `json:"name"` // first name
	Fuel     int    `json:"fuel"`
	Revenue  int    `json:"revenue"`
}

// Totals are fleet-wide fuel expense and revenue.
type Totals struct {
	Fuel    int `json:"fuel"`
	Revenue int `json:"revenue"`
}

// RevenueReport is the analytics view: per-driver rows plus fleet totals.
type RevenueReport struct {
	Drivers []DriverRevenue `json:"drivers"`
	Totals  Totals          `json:"totals"`
}

// Round rounds to the nearest integer with halves going toward +Inf,
// which is how the dashboards have always rounded currency.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// RevenueByDriver sums fuel cost and revenue over the logs whose driverId
// matches each driver, rounding each driver's totals independently.
func RevenueByDriver(drivers []models.Driver, logs []models.DailyLog) []DriverRevenue {
	rows := make([]DriverRevenue, 0, len(drivers))
	for _, d := range drivers {
		id := d.ID.Hex()
		var fuel, revenue float64
		for _, l := range logs {
			if l.DriverID != id {
				continue
			}
			fuel += l.FuelCost
			revenue += l.Revenue()
		}
		rows = append(rows, DriverRevenue{
			DriverID: id,
			Name:     d.FirstName(),
			Fuel:     Round(fuel),
			Revenue:  Round(revenue),
		})
	}
	return rows
}

// FleetTotals sums the already-rounded per-driver rows. Summing rounded rows
// can differ by a unit or more from rounding the raw sum; the rounded rows win.
func FleetTotals(rows []DriverRevenue) Totals {
	var t Totals
	for _, r := range rows {
		t.Fuel += r.Fuel
		t.Revenue += r.Revenue
	}
	return t
}

// Revenue builds the analytics report.
func Revenue(drivers []models.Driver, logs []models.DailyLog) RevenueReport {
	rows := RevenueByDriver(drivers, logs)
	return RevenueReport{Drivers: rows, Totals: FleetTotals(rows)}
}
