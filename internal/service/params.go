package service

import "time"

// LogFilter narrows the event log by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "ALERT", "FAULT", "RESET", "INGEST_ERROR"
}

// Config carries the tunables the services need from configs/config.yml.
type Config struct {
	Path                string
	AlertCooldown       time.Duration
	MaintenanceInterval time.Duration
	SigningKey          string
	TokenTTL            time.Duration
}
