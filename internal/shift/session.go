package shift

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/logging"
	"github.com/ukydev/fleetflow/internal/models"
)

// ClockInState is the clock-in control's state.
type ClockInState string

const (
	ClockInIdle       ClockInState = "idle"
	ClockInSubmitting ClockInState = "submitting"
	ClockedIn         ClockInState = "clocked_in"
)

// IdentitySource reports the signed-in identity.
type IdentitySource interface {
	CurrentIdentity() *models.Identity
}

// Session is one driver's shift on this console: checklist, clock-in and
// log submission. Writes go to the daily_logs collection and become visible
// only when the live subscription redelivers them.
type Session struct {
	checklist  *Checklist
	identities IdentitySource
	logs       db.LogWriter
	logger     logrus.FieldLogger
	now        func() time.Time

	mu         sync.Mutex
	clockIn    ClockInState
	submitting bool
}

// NewSession creates an idle session with the default checklist.
func NewSession(identities IdentitySource, logs db.LogWriter, logger logrus.FieldLogger) *Session {
	return &Session{
		checklist:  NewChecklist(),
		identities: identities,
		logs:       logs,
		logger:     logger.WithField("component", "shift"),
		now:        time.Now,
		clockIn:    ClockInIdle,
	}
}

// Checklist returns the session's pre-shift checklist.
func (s *Session) Checklist() *Checklist {
	return s.checklist
}

// ClockInState returns the current clock-in state.
func (s *Session) ClockInState() ClockInState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clockIn
}

// Submitting reports whether a daily log write is in flight.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// ClockIn writes an active log for the signed-in driver. It is rejected
// without any write unless the checklist is complete and someone is signed
// in. A failed write is logged and the control returns to idle.
func (s *Session) ClockIn(ctx context.Context) error {
	s.mu.Lock()
	switch s.clockIn {
	case ClockedIn:
		s.mu.Unlock()
		return ErrAlreadyClockedIn
	case ClockInSubmitting:
		s.mu.Unlock()
		return ErrClockInPending
	}
	if !s.checklist.Complete() {
		s.mu.Unlock()
		return ErrChecklistIncomplete
	}
	identity := s.identities.CurrentIdentity()
	if identity == nil {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	s.clockIn = ClockInSubmitting
	s.mu.Unlock()

	lat, lng := 0.0, 0.0
	at := s.now()
	err := s.logs.InsertDailyLog(ctx, models.DailyLog{
		DriverID:  identity.UID,
		Timestamp: &at,
		Status:    models.LogStatusActive,
		Lat:       &lat,
		Lng:       &lng,
	})

	log := logging.FromContext(ctx, s.logger).WithField("uid", identity.UID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.WithError(err).Error("Clock-in failed")
		s.clockIn = ClockInIdle
		return ErrClockInFailed
	}
	s.clockIn = ClockedIn
	log.Info("Clocked in")
	return nil
}

// SubmitLog validates the form and appends a daily log for the signed-in driver.
func (s *Session) SubmitLog(ctx context.Context, form LogForm) (models.DailyLog, error) {
	log, err := form.Build(s.identities.CurrentIdentity(), s.now())
	if err != nil {
		return models.DailyLog{}, err
	}

	s.mu.Lock()
	s.submitting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	logger := logging.FromContext(ctx, s.logger).WithField("uid", log.DriverID)
	if err := s.logs.InsertDailyLog(ctx, log); err != nil {
		logger.WithError(err).Error("Failed to save daily log")
		return models.DailyLog{}, ErrSaveFailed
	}
	logger.WithField("total_km", *log.TotalKM).Info("Daily log saved")
	return log, nil
}

// Reset returns the session to its initial state. Called on sign-out.
func (s *Session) Reset() {
	s.checklist.Reset()
	s.mu.Lock()
	s.clockIn = ClockInIdle
	s.submitting = false
	s.mu.Unlock()
}
