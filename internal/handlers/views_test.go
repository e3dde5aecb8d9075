package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/db/dbtest"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/shift"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type snapshotReader fleet.Snapshot

func (r snapshotReader) Snapshot() fleet.Snapshot { return fleet.Snapshot(r) }

type fixedIdentity struct {
	identity *models.Identity
}

func (f fixedIdentity) CurrentIdentity() *models.Identity { return f.identity }

var driverIdentity = &models.Identity{UID: "uid-1", Email: "a@x.com", Role: models.RoleDriver}

func scoped(req *http.Request, snap fleet.Snapshot, identity *models.Identity) *http.Request {
	ctx := fleet.NewContext(req.Context(), snapshotReader(snap))
	if identity != nil {
		ctx = context.WithValue(ctx, middleware.IdentityContextKey, identity)
	}
	return req.WithContext(ctx)
}

func newDriverHandler(identity *models.Identity) (*DriverHandler, *dbtest.MemoryLogs) {
	logger, _ := test.NewNullLogger()
	logs := dbtest.NewMemoryLogs()
	return NewDriverHandler(shift.NewSession(fixedIdentity{identity: identity}, logs, logger)), logs
}

func sampleSnapshot() fleet.Snapshot {
	asha := models.Driver{ID: primitive.NewObjectID(), Name: "Asha Rao", Email: "a@x.com"}
	km := 150
	ts := time.UnixMilli(2000)
	return fleet.Snapshot{
		Drivers: []models.Driver{asha},
		DailyLogs: []models.DailyLog{
			{DriverID: "uid-1", TotalKM: &km, RevenueCash: 500, Timestamp: &ts},
			{DriverID: "uid-1", Status: models.LogStatusActive},
			{DriverID: "uid-9", DriverName: "Other", Status: models.LogStatusActive},
		},
		Vehicles: []models.Vehicle{
			{Registration: "KA-01", TotalKM: 10000, NextServiceKM: 10000},
			{Registration: "KA-02", TotalKM: 100, NextServiceKM: 10000},
		},
		CurrentDriver: &asha,
	}
}

func TestFleetSnapshot(t *testing.T) {
	w := httptest.NewRecorder()
	FleetSnapshot(w, scoped(httptest.NewRequest("GET", "/api/fleet/snapshot", nil), sampleSnapshot(), driverIdentity))

	assert.Equal(t, http.StatusOK, w.Code)
	var snap fleet.Snapshot
	decodeBody(t, w, &snap)
	assert.Len(t, snap.Drivers, 1)
	assert.Len(t, snap.DailyLogs, 3)
	require.NotNil(t, snap.CurrentDriver)
	assert.Equal(t, "a@x.com", snap.CurrentDriver.Email)
}

func TestFleetSnapshot_OutsideScopePanics(t *testing.T) {
	assert.PanicsWithValue(t, fleet.ErrNoAggregator, func() {
		FleetSnapshot(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/fleet/snapshot", nil))
	})
}

func TestAdminViews(t *testing.T) {
	snap := sampleSnapshot()

	t.Run("active drivers", func(t *testing.T) {
		w := httptest.NewRecorder()
		ActiveDrivers(w, scoped(httptest.NewRequest("GET", "/", nil), snap, nil))
		var resp struct {
			Drivers []analytics.ActiveDriver `json:"drivers"`
		}
		decodeBody(t, w, &resp)
		require.Len(t, resp.Drivers, 2)
		assert.Equal(t, analytics.UnknownDriver, resp.Drivers[0].DriverName)
		assert.Equal(t, "Other", resp.Drivers[1].DriverName)
	})

	t.Run("maintenance", func(t *testing.T) {
		w := httptest.NewRecorder()
		Maintenance(w, scoped(httptest.NewRequest("GET", "/", nil), snap, nil))
		var resp analytics.MaintenanceOverview
		decodeBody(t, w, &resp)
		assert.Equal(t, 1, resp.OverdueCount)
		assert.Len(t, resp.Healthy, 1)
	})

	t.Run("analytics", func(t *testing.T) {
		w := httptest.NewRecorder()
		Analytics(w, scoped(httptest.NewRequest("GET", "/", nil), snap, nil))
		var resp analytics.RevenueReport
		decodeBody(t, w, &resp)
		require.Len(t, resp.Drivers, 1)
		assert.Equal(t, "Asha", resp.Drivers[0].Name)
	})
}

func TestDriverHandler_ChecklistAndClockIn(t *testing.T) {
	h, logs := newDriverHandler(driverIdentity)
	snap := sampleSnapshot()

	w := httptest.NewRecorder()
	h.ClockIn(w, scoped(httptest.NewRequest("POST", "/api/driver/clock-in", nil), snap, driverIdentity))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, logs.Docs())

	for _, item := range shift.DefaultItems() {
		req := httptest.NewRequest("POST", "/api/driver/checklist/"+item.ID+"/toggle", nil)
		req.SetPathValue("id", item.ID)
		w = httptest.NewRecorder()
		h.ToggleChecklistItem(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = httptest.NewRecorder()
	h.ConfirmChecklist(w, httptest.NewRequest("POST", "/api/driver/checklist/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var checklist ChecklistResponse
	decodeBody(t, w, &checklist)
	assert.True(t, checklist.Complete)
	assert.Equal(t, checklist.Total, checklist.Completed)

	w = httptest.NewRecorder()
	h.ClockIn(w, scoped(httptest.NewRequest("POST", "/api/driver/clock-in", nil), snap, driverIdentity))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, logs.Docs(), 1)
	assert.Equal(t, "uid-1", logs.Docs()[0].DriverID)

	w = httptest.NewRecorder()
	h.Dashboard(w, scoped(httptest.NewRequest("GET", "/api/driver/dashboard", nil), snap, driverIdentity))
	var dash DashboardResponse
	decodeBody(t, w, &dash)
	assert.Equal(t, shift.ClockedIn, dash.ClockIn)
	require.NotNil(t, dash.CurrentDriver)
	assert.Equal(t, "Asha Rao", dash.CurrentDriver.Name)
}

func TestDriverHandler_ToggleUnknownItem(t *testing.T) {
	h, _ := newDriverHandler(driverIdentity)
	req := httptest.NewRequest("POST", "/api/driver/checklist/horn/toggle", nil)
	req.SetPathValue("id", "horn")
	w := httptest.NewRecorder()
	h.ToggleChecklistItem(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDriverHandler_ClockInWriteFailure(t *testing.T) {
	h, logs := newDriverHandler(driverIdentity)
	for _, item := range h.session.Checklist().Items() {
		require.NoError(t, h.session.Checklist().Toggle(item.ID))
	}
	require.NoError(t, h.session.Checklist().Confirm())
	logs.FailWrites(true)

	w := httptest.NewRecorder()
	h.ClockIn(w, httptest.NewRequest("POST", "/api/driver/clock-in", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, shift.ClockInIdle, h.session.ClockInState())
}

func TestDriverHandler_Trips(t *testing.T) {
	h, _ := newDriverHandler(driverIdentity)
	w := httptest.NewRecorder()
	h.Trips(w, scoped(httptest.NewRequest("GET", "/api/driver/logs", nil), sampleSnapshot(), driverIdentity))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp TripsResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Trips, 2)
	assert.Equal(t, analytics.CompletedStatus, resp.Trips[0].DisplayStatus)
	assert.Equal(t, models.LogStatusActive, resp.Trips[1].DisplayStatus)
	assert.Equal(t, 150, resp.TotalKM)
	assert.InDelta(t, 500, resp.TotalRevenue, 1e-9)
}

func TestDriverHandler_SubmitLog(t *testing.T) {
	form := shift.LogForm{
		DriverName:     "Asha Rao",
		OdometerStart:  "100",
		OdometerEnd:    "250",
		FuelLiters:     "10",
		FuelCost:       "900",
		RevenueCash:    "1000",
		RevenueDigital: "0",
	}
	body := func(f shift.LogForm) *bytes.Buffer {
		b, err := json.Marshal(f)
		require.NoError(t, err)
		return bytes.NewBuffer(b)
	}

	t.Run("created", func(t *testing.T) {
		h, logs := newDriverHandler(driverIdentity)
		w := httptest.NewRecorder()
		h.SubmitLog(w, httptest.NewRequest("POST", "/api/driver/logs", body(form)))

		assert.Equal(t, http.StatusCreated, w.Code)
		var log models.DailyLog
		decodeBody(t, w, &log)
		require.NotNil(t, log.TotalKM)
		assert.Equal(t, 150, *log.TotalKM)
		require.NotNil(t, log.Efficiency)
		assert.InDelta(t, 15.0, *log.Efficiency, 1e-9)
		assert.Len(t, logs.Docs(), 1)
	})

	t.Run("malformed number", func(t *testing.T) {
		h, logs := newDriverHandler(driverIdentity)
		bad := form
		bad.FuelLiters = "ten"
		w := httptest.NewRecorder()
		h.SubmitLog(w, httptest.NewRequest("POST", "/api/driver/logs", body(bad)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, logs.Docs())
	})

	t.Run("write failure", func(t *testing.T) {
		h, logs := newDriverHandler(driverIdentity)
		logs.FailWrites(true)
		w := httptest.NewRecorder()
		h.SubmitLog(w, httptest.NewRequest("POST", "/api/driver/logs", body(form)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp errorResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, "Failed to save log", resp.Error)
	})

	t.Run("signed out", func(t *testing.T) {
		h, _ := newDriverHandler(nil)
		w := httptest.NewRecorder()
		h.SubmitLog(w, httptest.NewRequest("POST", "/api/driver/logs", body(form)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("preview", func(t *testing.T) {
		h, _ := newDriverHandler(driverIdentity)
		w := httptest.NewRecorder()
		h.PreviewLog(w, httptest.NewRequest("POST", "/api/driver/logs/preview", body(form)))
		var p shift.LogPreview
		decodeBody(t, w, &p)
		assert.Equal(t, 150, p.TotalKM)
	})
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
