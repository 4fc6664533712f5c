package service

import (
	"testing"
	"time"

	"air_monitor/internal/metrics"
	"air_monitor/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func statuses(temp, hum, gas models.Status) models.Statuses {
	return models.Statuses{
		models.KindTemperature: temp,
		models.KindHumidity:    hum,
		models.KindGas:         gas,
	}
}

const (
	good = models.StatusGood
	mod  = models.StatusModerate
	poor = models.StatusPoor
)

func TestDebouncer_EdgeTriggered(t *testing.T) {
	d := NewDebouncer(DefaultAlertCooldown)

	n := d.Evaluate(statuses(poor, good, good), t0)
	if n == nil {
		t.Fatal("expected alert on first transition into poor")
	}
	if n.Kind != models.NotificationAlert || n.Message != "Poor reading detected: Temperature" {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if !d.Notified(models.KindTemperature) {
		t.Fatal("temperature should be flagged")
	}

	// Staying poor never re-alerts, even long after the cooldown.
	for i := 1; i <= 5; i++ {
		if n := d.Evaluate(statuses(poor, good, good), t0.Add(time.Duration(i)*time.Minute)); n != nil {
			t.Fatalf("tick %d: unexpected alert %+v", i, n)
		}
	}

	// Leaving poor clears the flag; re-entry after cooldown alerts again.
	if n := d.Evaluate(statuses(good, good, good), t0.Add(10*time.Minute)); n != nil {
		t.Fatalf("unexpected alert when leaving poor: %+v", n)
	}
	if d.Notified(models.KindTemperature) {
		t.Fatal("flag should be cleared after leaving poor")
	}
	if n := d.Evaluate(statuses(poor, good, good), t0.Add(11*time.Minute)); n == nil {
		t.Fatal("expected alert on re-entry")
	}
}

func TestDebouncer_CooldownDropsTransition(t *testing.T) {
	d := NewDebouncer(30 * time.Second)

	if n := d.Evaluate(statuses(poor, good, good), t0); n == nil {
		t.Fatal("expected first alert")
	}
	suppressed := testutil.ToFloat64(metrics.AlertsSuppressedTotal)

	// Gas turns poor 10s later: inside cooldown, dropped but flagged.
	if n := d.Evaluate(statuses(poor, good, poor), t0.Add(10*time.Second)); n != nil {
		t.Fatalf("expected suppression inside cooldown, got %+v", n)
	}
	if !d.Notified(models.KindGas) {
		t.Fatal("suppressed kind should still be flagged")
	}
	if got := testutil.ToFloat64(metrics.AlertsSuppressedTotal); got != suppressed+1 {
		t.Fatalf("suppressed counter = %v; want %v", got, suppressed+1)
	}
	// The dropped transition is not replayed once the cooldown is over.
	if n := d.Evaluate(statuses(poor, good, poor), t0.Add(time.Minute)); n != nil {
		t.Fatalf("dropped transition must not be queued, got %+v", n)
	}
	if got := d.LastAlertAt(); !got.Equal(t0) {
		t.Fatalf("LastAlertAt = %v; want %v", got, t0)
	}
}

func TestDebouncer_CooldownBoundaryIsStrict(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	d.Evaluate(statuses(poor, good, good), t0)
	d.Evaluate(statuses(good, good, good), t0.Add(time.Second))

	if n := d.Evaluate(statuses(poor, good, good), t0.Add(30*time.Second)); n != nil {
		t.Fatal("exactly cooldown elapsed should still suppress")
	}
	d.Evaluate(statuses(good, good, good), t0.Add(31*time.Second))
	if n := d.Evaluate(statuses(poor, good, good), t0.Add(31*time.Second+time.Millisecond)); n == nil {
		t.Fatal("expected alert after cooldown")
	}
}

func TestDebouncer_CombinesKindsInOrder(t *testing.T) {
	d := NewDebouncer(DefaultAlertCooldown)

	n := d.Evaluate(statuses(poor, poor, poor), t0)
	if n == nil {
		t.Fatal("expected combined alert")
	}
	if n.Message != "Poor reading detected: Temperature, Humidity, Gas" {
		t.Fatalf("unexpected message %q", n.Message)
	}
	if len(n.Sensors) != 3 {
		t.Fatalf("expected three sensors, got %v", n.Sensors)
	}
}

func TestDebouncer_ModerateAndUnclassifiedNeverAlert(t *testing.T) {
	d := NewDebouncer(0)
	seq := []models.Statuses{
		statuses(mod, mod, mod),
		statuses(models.StatusUnclassified, good, mod),
		statuses(good, good, good),
	}
	for i, st := range seq {
		if n := d.Evaluate(st, t0.Add(time.Duration(i)*time.Hour)); n != nil {
			t.Fatalf("cycle %d: unexpected alert %+v", i, n)
		}
	}
	if !d.LastAlertAt().IsZero() {
		t.Fatal("LastAlertAt should stay zero")
	}
}
