package models

import "time"

// MaintenanceRecord holds the time of the last scheduled device reset.
type MaintenanceRecord struct {
	LastResetAt time.Time `json:"last_reset_at"`
}
