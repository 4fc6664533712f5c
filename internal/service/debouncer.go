package service

import (
	"fmt"
	"sync"
	"time"

	"air_monitor/internal/metrics"
	"air_monitor/internal/models"
)

// DefaultAlertCooldown is the minimum gap between two poor-range alerts.
const DefaultAlertCooldown = 30 * time.Second

// Debouncer turns per-cycle statuses into edge-triggered alerts.
//
// A kind raises an alert only on its transition into poor; the flag is
// cleared once the kind leaves poor. All kinds share one cooldown, and a
// transition that falls inside the cooldown is dropped, not queued.
type Debouncer struct {
	cooldown time.Duration

	mu          sync.Mutex
	notified    map[models.SensorKind]bool
	lastAlertAt time.Time // zero until the first alert
}

func NewDebouncer(cooldown time.Duration) *Debouncer {
	if cooldown < 0 {
		cooldown = 0
	}
	return &Debouncer{
		cooldown: cooldown,
		notified: make(map[models.SensorKind]bool, len(models.SensorKinds)),
	}
}

// Evaluate applies one cycle and returns the alert to surface, if any.
// The returned notification has no ID; the caller assigns one.
func (d *Debouncer) Evaluate(statuses models.Statuses, now time.Time) *models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	var newlyPoor []models.SensorKind
	for _, kind := range models.SensorKinds {
		if statuses[kind] != models.StatusPoor {
			d.notified[kind] = false
			continue
		}
		if !d.notified[kind] {
			d.notified[kind] = true
			newlyPoor = append(newlyPoor, kind)
		}
	}

	if len(newlyPoor) == 0 {
		return nil
	}
	if !d.lastAlertAt.IsZero() && now.Sub(d.lastAlertAt) <= d.cooldown {
		metrics.AlertsSuppressedTotal.Inc()
		return nil
	}

	d.lastAlertAt = now
	return &models.Notification{
		Kind:      models.NotificationAlert,
		Message:   AlertMessage(newlyPoor),
		Sensors:   newlyPoor,
		CreatedAt: now,
	}
}

// Notified reports whether kind is inside an already-alerted poor episode.
func (d *Debouncer) Notified(kind models.SensorKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notified[kind]
}

// LastAlertAt returns the time of the last emitted alert (zero if none).
func (d *Debouncer) LastAlertAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastAlertAt
}

// AlertMessage is the combined text for kinds that just entered poor.
func AlertMessage(kinds []models.SensorKind) string {
	return fmt.Sprintf("Poor reading detected: %s", joinKinds(kinds))
}
