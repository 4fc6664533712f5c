package models

import "time"

// DashboardState is what the presentation layer renders.
type DashboardState struct {
	Temperature   *float64      `json:"temperature"`
	Humidity      *float64      `json:"humidity"`
	GasLevel      *float64      `json:"gasLevel"`
	Statuses      Statuses      `json:"statuses"`
	Abnormal      []SensorKind  `json:"abnormal,omitempty"`
	LastUpdatedAt *time.Time    `json:"lastUpdatedAt"`
	Stale         bool          `json:"stale"`
	Notification  *Notification `json:"notification"`
}
