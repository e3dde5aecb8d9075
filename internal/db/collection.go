package db

import (
	"context"

	"github.com/ukydev/fleetflow/internal/models"
)

// Collection names in the fleet database.
const (
	CollectionDrivers   = "drivers"
	CollectionDailyLogs = "daily_logs"
	CollectionVehicles  = "vehicles"
	CollectionAccounts  = "accounts"
)

// Source is a collection that can be read in full and watched for changes.
type Source interface {
	Name() string
	Find(ctx context.Context) (Cursor, error)
	Watch(ctx context.Context) (ChangeStream, error)
}

// Cursor iterates the documents of a full read one at a time.
// *mongo.Cursor satisfies it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// ChangeStream defines the interface for change stream operations.
// *mongo.ChangeStream satisfies it.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// LogWriter appends entries to the daily_logs collection.
type LogWriter interface {
	InsertDailyLog(ctx context.Context, log models.DailyLog) error
}

// AccountCollection defines the interface for account database operations
type AccountCollection interface {
	InsertAccount(ctx context.Context, account models.Account) error
	FindAccountByID(ctx context.Context, id string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
