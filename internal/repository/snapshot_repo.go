package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"air_monitor/internal/models"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

const (
	snapshotRowID = 1

	upsertSnapshotSQL = `
		INSERT INTO sensor_snapshot (id, temperature, humidity, gas, received_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			temperature=excluded.temperature,
			humidity=excluded.humidity,
			gas=excluded.gas,
			received_ms=excluded.received_ms
	`

	selectSnapshotSQL = `
		SELECT temperature, humidity, gas, received_ms
		FROM sensor_snapshot WHERE id=?
	`
)

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// Save replaces the stored snapshot. Absent readings are stored as NULL.
func (r *SnapshotSQLite) Save(ctx context.Context, s models.Snapshot) error {
	received := s.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	_, err := r.db.ExecContext(ctx, upsertSnapshotSQL,
		snapshotRowID,
		nullFloat(s.Temperature),
		nullFloat(s.Humidity),
		nullFloat(s.Gas),
		received.UnixMilli(),
	)
	return err
}

// Load returns the stored snapshot; ok is false when nothing was saved yet.
func (r *SnapshotSQLite) Load(ctx context.Context) (models.Snapshot, bool, error) {
	var (
		temp, hum, gas sql.NullFloat64
		receivedMs     int64
	)
	err := r.db.QueryRowContext(ctx, selectSnapshotSQL, snapshotRowID).Scan(&temp, &hum, &gas, &receivedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Snapshot{}, false, nil
		}
		return models.Snapshot{}, false, err
	}
	return models.Snapshot{
		Temperature: floatPtr(temp),
		Humidity:    floatPtr(hum),
		Gas:         floatPtr(gas),
		ReceivedAt:  time.UnixMilli(receivedMs).UTC(),
	}, true, nil
}
