package models

// Status is the health band of a single reading.
type Status string

const (
	StatusUnclassified Status = "unclassified"
	StatusGood         Status = "good"
	StatusModerate     Status = "moderate"
	StatusPoor         Status = "poor"
)

// Statuses maps every sensor kind to its current band.
type Statuses map[SensorKind]Status
