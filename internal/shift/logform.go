package shift

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/models"
)

// LogForm is the daily log form as typed by the driver.
type LogForm struct {
	DriverName     string `json:"driverName"`
	OdometerStart  string `json:"odometerStart"`
	OdometerEnd    string `json:"odometerEnd"`
	FuelLiters     string `json:"fuelLiters"`
	FuelCost       string `json:"fuelCost"`
	RevenueCash    string `json:"revenueCash"`
	RevenueDigital string `json:"revenueDigital"`
}

// LogPreview is the live distance and efficiency shown while typing.
type LogPreview struct {
	TotalKM    int      `json:"totalKM"`
	Efficiency *float64 `json:"efficiency,omitempty"`
}

// Preview computes totalKM and efficiency from whatever has been typed so
// far. Unparseable or missing fields preview as zero distance and no efficiency.
func (f LogForm) Preview() LogPreview {
	start, errStart := parseInt(f.OdometerStart)
	end, errEnd := parseInt(f.OdometerEnd)
	if errStart != nil || errEnd != nil {
		return LogPreview{}
	}
	p := LogPreview{TotalKM: end - start}
	if liters, err := parseFloat(f.FuelLiters); err == nil {
		p.Efficiency = analytics.Efficiency(p.TotalKM, liters)
	}
	return p
}

// Build parses the form into a daily log for identity. Distance and
// efficiency are computed here, once; they are never recomputed later.
// Malformed numbers are rejected with ErrInvalidNumber.
func (f LogForm) Build(identity *models.Identity, now time.Time) (models.DailyLog, error) {
	if identity == nil {
		return models.DailyLog{}, ErrNotSignedIn
	}
	name := strings.TrimSpace(f.DriverName)
	if name == "" {
		return models.DailyLog{}, ErrDriverNameRequired
	}

	var (
		log models.DailyLog
		err error
	)
	if log.OdometerStart, err = parseIntField("odometerStart", f.OdometerStart); err != nil {
		return models.DailyLog{}, err
	}
	if log.OdometerEnd, err = parseIntField("odometerEnd", f.OdometerEnd); err != nil {
		return models.DailyLog{}, err
	}
	if log.FuelLiters, err = parseFloatField("fuelLiters", f.FuelLiters); err != nil {
		return models.DailyLog{}, err
	}
	if log.FuelCost, err = parseFloatField("fuelCost", f.FuelCost); err != nil {
		return models.DailyLog{}, err
	}
	if log.RevenueCash, err = parseFloatField("revenueCash", f.RevenueCash); err != nil {
		return models.DailyLog{}, err
	}
	if log.RevenueDigital, err = parseFloatField("revenueDigital", f.RevenueDigital); err != nil {
		return models.DailyLog{}, err
	}

	totalKM := log.OdometerEnd - log.OdometerStart
	log.DriverID = identity.UID
	log.DriverName = name
	log.Date = now.UTC().Format("2006-01-02")
	log.TotalKM = &totalKM
	log.Efficiency = analytics.Efficiency(totalKM, log.FuelLiters)
	log.Status = models.LogStatusActive
	return log, nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseIntField(name, s string) (int, error) {
	v, err := parseInt(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidNumber, name, s)
	}
	return v, nil
}

func parseFloatField(name, s string) (float64, error) {
	v, err := parseFloat(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidNumber, name, s)
	}
	return v, nil
}
