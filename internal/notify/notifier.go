// Package notify publishes a compact fleet summary to an MQTT topic whenever
// the aggregated snapshot changes, for realtime dashboards outside this process.
package notify

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/fleet"
)

// Summary is the published payload.
type Summary struct {
	Loading         bool      `json:"loading"`
	Drivers         int       `json:"drivers"`
	ActiveDrivers   int       `json:"activeDrivers"`
	DailyLogs       int       `json:"dailyLogs"`
	Vehicles        int       `json:"vehicles"`
	OverdueVehicles int       `json:"overdueVehicles"`
	DueSoonVehicles int       `json:"dueSoonVehicles"`
	FuelExpense     int       `json:"fuelExpense"`
	Revenue         int       `json:"revenue"`
	CurrentDriverID string    `json:"currentDriverId,omitempty"`
	At              time.Time `json:"at"`
}

// Summarize derives the payload for s.
func Summarize(s fleet.Snapshot, at time.Time) Summary {
	maintenance := analytics.Maintenance(s.Vehicles)
	revenue := analytics.Revenue(s.Drivers, s.DailyLogs)

	summary := Summary{
		Loading:         s.Loading,
		Drivers:         len(s.Drivers),
		ActiveDrivers:   len(analytics.ActiveDrivers(s.DailyLogs)),
		DailyLogs:       len(s.DailyLogs),
		Vehicles:        len(s.Vehicles),
		OverdueVehicles: maintenance.OverdueCount,
		DueSoonVehicles: maintenance.WarningCount,
		FuelExpense:     revenue.Totals.Fuel,
		Revenue:         revenue.Totals.Revenue,
		At:              at.UTC(),
	}
	if s.CurrentDriver != nil {
		summary.CurrentDriverID = s.CurrentDriver.ID.Hex()
	}
	return summary
}

// Notifier turns snapshot changes into published summaries.
type Notifier struct {
	publisher Publisher
	topic     string
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewNotifier publishes to topic through publisher.
func NewNotifier(publisher Publisher, topic string, logger logrus.FieldLogger) *Notifier {
	return &Notifier{
		publisher: publisher,
		topic:     topic,
		logger:    logger.WithFields(logrus.Fields{"component": "notify", "topic": topic}),
		now:       time.Now,
	}
}

// Attach publishes on every change of agg. The returned function detaches.
func (n *Notifier) Attach(agg *fleet.Aggregator) func() {
	return agg.OnChange(n.Publish)
}

// Publish sends the summary of s. Failures are logged and dropped.
func (n *Notifier) Publish(s fleet.Snapshot) {
	payload, err := json.Marshal(Summarize(s, n.now()))
	if err != nil {
		n.logger.WithError(err).Error("Failed to encode fleet summary")
		return
	}
	if err := n.publisher.Publish(n.topic, payload); err != nil {
		n.logger.WithError(err).Warn("Failed to publish fleet summary")
		return
	}
	n.logger.WithField("bytes", len(payload)).Debug("Published fleet summary")
}
