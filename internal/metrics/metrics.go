package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	SnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airmon_snapshots_total",
			Help: "Total number of sensor snapshots received",
		},
	)

	IngestErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airmon_ingest_errors_total",
			Help: "Total number of errors reported by the ingest adapter",
		},
	)

	// Classification metrics
	SensorValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airmon_sensor_value",
			Help: "Latest reading per sensor kind",
		},
		[]string{"sensor"},
	)

	SensorStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airmon_sensor_status",
			Help: "Current status per sensor kind (1 for the active status)",
		},
		[]string{"sensor", "status"},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airmon_notifications_total",
			Help: "Total number of notifications raised",
		},
		[]string{"kind"}, // alert, fault, maintenance
	)

	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airmon_alerts_suppressed_total",
			Help: "Poor-range transitions dropped by the alert cooldown",
		},
	)

	// Maintenance metrics
	MaintenanceResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airmon_maintenance_resets_total",
			Help: "Maintenance checks by outcome",
		},
		[]string{"outcome"}, // performed, not_due, lost_race, failed
	)
)
