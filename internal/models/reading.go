package models

import "time"

// SensorKind names one of the monitored quantities.
type SensorKind string

const (
	KindTemperature SensorKind = "Temperature"
	KindHumidity    SensorKind = "Humidity"
	KindGas         SensorKind = "Gas"
)

// SensorKinds is the fixed evaluation and message order.
var SensorKinds = []SensorKind{KindTemperature, KindHumidity, KindGas}

// Snapshot is the latest full set of readings delivered by an ingest adapter.
// A nil value means the field has not been received yet.
type Snapshot struct {
	Temperature *float64  `json:"temperature"` // °F
	Humidity    *float64  `json:"humidity"`    // %
	Gas         *float64  `json:"gasLevel"`    // ppm
	ReceivedAt  time.Time `json:"receivedAt"`
}

// Value returns the reading for kind, or nil when absent or unknown.
func (s Snapshot) Value(kind SensorKind) *float64 {
	switch kind {
	case KindTemperature:
		return s.Temperature
	case KindHumidity:
		return s.Humidity
	case KindGas:
		return s.Gas
	default:
		return nil
	}
}

// Float returns a pointer to v, handy for building snapshots.
func Float(v float64) *float64 { return &v }
