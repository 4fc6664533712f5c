package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"air_monitor/internal/models"
)

// ErrResetTimeRegressed is returned when a maintenance write would move
// lastResetAt backwards.
var ErrResetTimeRegressed = errors.New("maintenance: reset time must not move backwards")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// SnapshotRepo keeps the last received snapshot so a restarted process can
// show (stale) values before the first push arrives.
type SnapshotRepo interface {
	Save(ctx context.Context, s models.Snapshot) error
	Load(ctx context.Context) (models.Snapshot, bool, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.SensorEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.SensorEvent, error)
}

// MaintenanceRepo stores the single lastResetAt timestamp.
//
// CompareAndSwap writes next only if the stored value still equals prev
// (prev == nil means "no record yet"). It reports whether the write won.
type MaintenanceRepo interface {
	Load(ctx context.Context) (models.MaintenanceRecord, bool, error)
	CompareAndSwap(ctx context.Context, prev *time.Time, next time.Time) (bool, error)
}

type Repository struct {
	SnapshotRepo SnapshotRepo
	EventRepo    EventRepo
	Maintenance  MaintenanceRepo
	Auth         Authorization
}

// NewRepository builds the SQLite-backed repositories. Callers may replace
// Maintenance with another store (see NewMaintenanceRedis).
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		SnapshotRepo: NewSnapshotSQLite(db),
		EventRepo:    NewEventSQLite(db),
		Maintenance:  NewMaintenanceSQLite(db),
		Auth:         NewUserRepository(db),
	}
}

// checkMonotonic rejects a swap that would move the reset time backwards.
func checkMonotonic(prev *time.Time, next time.Time) error {
	if prev != nil && next.UnixMilli() < prev.UnixMilli() {
		return ErrResetTimeRegressed
	}
	return nil
}
