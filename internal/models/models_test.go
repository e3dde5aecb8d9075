package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"driver role", RoleDriver, true},
		{"invalid role", "manager", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestIdentity_IsAdmin(t *testing.T) {
	var none *Identity
	assert.False(t, none.IsAdmin())
	assert.True(t, (&Identity{UID: "1", Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&Identity{UID: "2", Email: "admin@fleet.io", Role: RoleDriver}).IsAdmin())
}

func TestClaims_Identity(t *testing.T) {
	c := &Claims{UserID: "abc", Email: "a@x.com", Role: RoleDriver}
	id := c.Identity()
	assert.Equal(t, "abc", id.UID)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, RoleDriver, id.Role)
}

func TestDriver_FirstName(t *testing.T) {
	assert.Equal(t, "Ravi", Driver{Name: "Ravi Kumar"}.FirstName())
	assert.Equal(t, "Asha", Driver{Name: "Asha"}.FirstName())
	assert.Equal(t, "", Driver{}.FirstName())
}

func TestDailyLog_TimestampMillis(t *testing.T) {
	assert.Equal(t, int64(0), DailyLog{}.TimestampMillis())
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, int64(1700000000123), DailyLog{Timestamp: &ts}.TimestampMillis())
}

func TestDailyLog_Revenue(t *testing.T) {
	assert.InDelta(t, 150.5, DailyLog{RevenueCash: 100, RevenueDigital: 50.5}.Revenue(), 1e-9)
}
