package shift

import "errors"

var (
	ErrUnknownItem         = errors.New("unknown checklist item")
	ErrChecklistIncomplete = errors.New("all safety checks must be completed before starting your shift")
	ErrNotSignedIn         = errors.New("not signed in")
	ErrAlreadyClockedIn    = errors.New("already clocked in")
	ErrClockInPending      = errors.New("clock-in already in progress")
	ErrClockInFailed       = errors.New("clock-in failed")
	ErrSaveFailed          = errors.New("failed to save log")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrDriverNameRequired  = errors.New("driver name is required")
)
