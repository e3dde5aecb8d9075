package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LogStatusActive marks a log written at clock-in or with a submitted daily log.
const LogStatusActive = "active"

// DailyLog is one entry of the daily_logs collection. Entries are append-only:
// TotalKM and Efficiency are captured when the entry is written and never recomputed.
// A clock-in entry carries only driverId, timestamp, status and position.
type DailyLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID       string             `bson:"driverId" json:"driverId"`
	DriverName     string             `bson:"driverName,omitempty" json:"driverName,omitempty"`
	Date           string             `bson:"date,omitempty" json:"date,omitempty"` // YYYY-MM-DD
	OdometerStart  int                `bson:"odometerStart,omitempty" json:"odometerStart"`
	OdometerEnd    int                `bson:"odometerEnd,omitempty" json:"odometerEnd"`
	FuelLiters     float64            `bson:"fuelLiters,omitempty" json:"fuelLiters"`
	FuelCost       float64            `bson:"fuelCost,omitempty" json:"fuelCost"`
	RevenueCash    float64            `bson:"revenueCash,omitempty" json:"revenueCash"`
	RevenueDigital float64            `bson:"revenueDigital,omitempty" json:"revenueDigital"`
	TotalKM        *int               `bson:"totalKM,omitempty" json:"totalKM,omitempty"`
	Efficiency     *float64           `bson:"efficiency,omitempty" json:"efficiency,omitempty"` // km per liter
	Timestamp      *time.Time         `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	Status         string             `bson:"status,omitempty" json:"status,omitempty"`
	Lat            *float64           `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng            *float64           `bson:"lng,omitempty" json:"lng,omitempty"`
}

// Revenue is cash plus digital revenue.
func (l DailyLog) Revenue() float64 {
	return l.RevenueCash + l.RevenueDigital
}

// TimestampMillis returns the timestamp in Unix milliseconds, or 0 when it is absent.
func (l DailyLog) TimestampMillis() int64 {
	if l.Timestamp == nil {
		return 0
	}
	return l.Timestamp.UnixMilli()
}
