package handlers

import (
	"net/http"

	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/fleet"
)

// FleetSnapshot handles GET /api/fleet/snapshot
func FleetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fleet.MustFromContext(r.Context()).Snapshot())
}

// ActiveDrivers handles GET /api/admin/active-drivers
func ActiveDrivers(w http.ResponseWriter, r *http.Request) {
	snap := fleet.MustFromContext(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loading": snap.Loading,
		"drivers": analytics.ActiveDrivers(snap.DailyLogs),
	})
}

// Maintenance handles GET /api/admin/maintenance
func Maintenance(w http.ResponseWriter, r *http.Request) {
	snap := fleet.MustFromContext(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, analytics.Maintenance(snap.Vehicles))
}

// Analytics handles GET /api/admin/analytics
func Analytics(w http.ResponseWriter, r *http.Request) {
	snap := fleet.MustFromContext(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, analytics.Revenue(snap.Drivers, snap.DailyLogs))
}
