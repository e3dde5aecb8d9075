package handlers

import (
	"errors"
	"net/http"

	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/shift"
)

// DriverHandler serves the driver-side views over the shift session.
type DriverHandler struct {
	session *shift.Session
}

// NewDriverHandler creates a driver handler
func NewDriverHandler(session *shift.Session) *DriverHandler {
	return &DriverHandler{session: session}
}

// ChecklistResponse is the checklist with its progress.
type ChecklistResponse struct {
	Items     []shift.ChecklistItem `json:"items"`
	Completed int                   `json:"completed"`
	Total     int                   `json:"total"`
	Complete  bool                  `json:"complete"`
}

// DashboardResponse is the driver dashboard.
type DashboardResponse struct {
	CurrentDriver *models.Driver     `json:"currentDriver"`
	Loading       bool               `json:"loading"`
	Checklist     ChecklistResponse  `json:"checklist"`
	ClockIn       shift.ClockInState `json:"clockIn"`
}

// TripRow is one log in the trip history.
type TripRow struct {
	models.DailyLog
	DisplayStatus string `json:"displayStatus"`
}

// TripsResponse is the trip history page.
type TripsResponse struct {
	Trips         []TripRow `json:"trips"`
	TotalKM       int       `json:"totalKM"`
	TotalRevenue  float64   `json:"totalRevenue"`
	AvgEfficiency float64   `json:"avgEfficiency"`
}

func (h *DriverHandler) checklist() ChecklistResponse {
	c := h.session.Checklist()
	done, total := c.Progress()
	return ChecklistResponse{Items: c.Items(), Completed: done, Total: total, Complete: c.Complete()}
}

// Dashboard handles GET /api/driver/dashboard
func (h *DriverHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap := fleet.MustFromContext(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, DashboardResponse{
		CurrentDriver: snap.CurrentDriver,
		Loading:       snap.Loading,
		Checklist:     h.checklist(),
		ClockIn:       h.session.ClockInState(),
	})
}

// ToggleChecklistItem handles POST /api/driver/checklist/{id}/toggle
func (h *DriverHandler) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Checklist().Toggle(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.checklist())
}

// ConfirmChecklist handles POST /api/driver/checklist/confirm
func (h *DriverHandler) ConfirmChecklist(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Checklist().Confirm(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.checklist())
}

// ClockIn handles POST /api/driver/clock-in
func (h *DriverHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	err := h.session.ClockIn(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]shift.ClockInState{"clockIn": h.session.ClockInState()})
	case errors.Is(err, shift.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shift.ErrClockInFailed):
		writeError(w, http.StatusInternalServerError, "Clock-in failed")
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}

// Trips handles GET /api/driver/logs
func (h *DriverHandler) Trips(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, shift.ErrNotSignedIn.Error())
		return
	}
	snap := fleet.MustFromContext(r.Context()).Snapshot()

	stats := analytics.DriverTrips(snap.DailyLogs, identity.UID)
	resp := TripsResponse{
		Trips:         make([]TripRow, 0, len(stats.Logs)),
		TotalKM:       stats.TotalKM,
		TotalRevenue:  stats.TotalRevenue,
		AvgEfficiency: stats.AvgEfficiency,
	}
	for _, l := range stats.Logs {
		resp.Trips = append(resp.Trips, TripRow{DailyLog: l, DisplayStatus: analytics.TripStatus(l)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitLog handles POST /api/driver/logs. The new log shows up in the
// snapshot only once the daily_logs subscription redelivers.
func (h *DriverHandler) SubmitLog(w http.ResponseWriter, r *http.Request) {
	var form shift.LogForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	log, err := h.session.SubmitLog(r.Context(), form)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, log)
	case errors.Is(err, shift.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shift.ErrSaveFailed):
		writeError(w, http.StatusInternalServerError, "Failed to save log")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// PreviewLog handles POST /api/driver/logs/preview
func (h *DriverHandler) PreviewLog(w http.ResponseWriter, r *http.Request) {
	var form shift.LogForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	writeJSON(w, http.StatusOK, form.Preview())
}
