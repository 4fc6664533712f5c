package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"air_monitor/internal/models"
)

type MaintenanceSQLite struct {
	db *sql.DB
}

func NewMaintenanceSQLite(db *sql.DB) *MaintenanceSQLite {
	return &MaintenanceSQLite{db: db}
}

var _ MaintenanceRepo = (*MaintenanceSQLite)(nil)

const (
	maintenanceRowID = 1

	selectMaintenanceSQL = `SELECT last_reset_ms FROM maintenance WHERE id = ?`
	insertMaintenanceSQL = `INSERT INTO maintenance (id, last_reset_ms) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`
	swapMaintenanceSQL   = `UPDATE maintenance SET last_reset_ms = ? WHERE id = ? AND last_reset_ms = ?`
)

func (r *MaintenanceSQLite) Load(ctx context.Context) (models.MaintenanceRecord, bool, error) {
	var ms int64
	err := r.db.QueryRowContext(ctx, selectMaintenanceSQL, maintenanceRowID).Scan(&ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MaintenanceRecord{}, false, nil
		}
		return models.MaintenanceRecord{}, false, fmt.Errorf("select maintenance record: %w", err)
	}
	return models.MaintenanceRecord{LastResetAt: time.UnixMilli(ms).UTC()}, true, nil
}

// CompareAndSwap relies on the row-level condition so two processes sharing
// the database cannot both claim the same reset.
func (r *MaintenanceSQLite) CompareAndSwap(ctx context.Context, prev *time.Time, next time.Time) (bool, error) {
	if err := checkMonotonic(prev, next); err != nil {
		return false, err
	}

	var (
		res sql.Result
		err error
	)
	if prev == nil {
		res, err = r.db.ExecContext(ctx, insertMaintenanceSQL, maintenanceRowID, next.UnixMilli())
	} else {
		res, err = r.db.ExecContext(ctx, swapMaintenanceSQL, next.UnixMilli(), maintenanceRowID, prev.UnixMilli())
	}
	if err != nil {
		return false, fmt.Errorf("write maintenance record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("maintenance rows affected: %w", err)
	}
	return n == 1, nil
}
