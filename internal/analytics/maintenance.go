// Package analytics computes derived fleet metrics from a snapshot. Every
// function is pure and computed on demand; nothing is cached.
package analytics

import (
	"math"

	"github.com/ukydev/fleetflow/internal/models"
)

// DueSoonKM is the distance to the next service at or under which a vehicle needs service.
const DueSoonKM = 500

// MaintenanceState partitions vehicles by service urgency.
type MaintenanceState string

const (
	StateOverdue      MaintenanceState = "overdue"
	StateNeedsService MaintenanceState = "needsService"
	StateHealthy      MaintenanceState = "healthy"
)

// ServiceStatus is the maintenance status of one vehicle.
type ServiceStatus struct {
	Vehicle         models.Vehicle   `json:"vehicle"`
	State           MaintenanceState `json:"state"`
	KMToService     int              `json:"kmToService"` // clamped at 0 for display
	ProgressPercent float64          `json:"progressPercent"`
}

// Classify returns exactly one state for every (totalKM, nextServiceKM) pair.
func Classify(totalKM, nextServiceKM int) MaintenanceState {
	kmToService := nextServiceKM - totalKM
	switch {
	case kmToService <= 0:
		return StateOverdue
	case kmToService <= DueSoonKM:
		return StateNeedsService
	default:
		return StateHealthy
	}
}

// ProgressPercent is totalKM / nextServiceKM as a percentage, capped at 100.
// A non-positive service target counts as fully used up.
func ProgressPercent(totalKM, nextServiceKM int) float64 {
	if nextServiceKM <= 0 {
		return 100
	}
	return math.Min(100, float64(totalKM)/float64(nextServiceKM)*100)
}

// CheckService computes the status of one vehicle.
func CheckService(v models.Vehicle) ServiceStatus {
	return ServiceStatus{
		Vehicle:         v,
		State:           Classify(v.TotalKM, v.NextServiceKM),
		KMToService:     max(0, v.NextServiceKM-v.TotalKM),
		ProgressPercent: ProgressPercent(v.TotalKM, v.NextServiceKM),
	}
}

// MaintenanceOverview groups the fleet for the maintenance tracker.
type MaintenanceOverview struct {
	Alerts       []ServiceStatus `json:"alerts"` // overdue or due soon
	Healthy      []ServiceStatus `json:"healthy"`
	OverdueCount int             `json:"overdueCount"`
	WarningCount int             `json:"warningCount"`
}

// Maintenance builds the overview, preserving the input order within each group.
func Maintenance(vehicles []models.Vehicle) MaintenanceOverview {
	overview := MaintenanceOverview{
		Alerts:  []ServiceStatus{},
		Healthy: []ServiceStatus{},
	}
	for _, v := range vehicles {
		status := CheckService(v)
		switch status.State {
		case StateOverdue:
			overview.OverdueCount++
			overview.Alerts = append(overview.Alerts, status)
		case StateNeedsService:
			overview.WarningCount++
			overview.Alerts = append(overview.Alerts, status)
		default:
			overview.Healthy = append(overview.Healthy, status)
		}
	}
	return overview
}
