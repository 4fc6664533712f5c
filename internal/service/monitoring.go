package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"air_monitor/internal/logger"
	"air_monitor/internal/metrics"
	"air_monitor/internal/models"
	"air_monitor/internal/repository"

	"github.com/google/uuid"
)

const persistTimeout = 5 * time.Second

// Event types written to the event log.
const (
	EventAlert       = "ALERT"
	EventFault       = "FAULT"
	EventReset       = "RESET"
	EventIngestError = "INGEST_ERROR"
)

var (
	ErrSessionClosed        = errors.New("monitoring session is closed")
	ErrSessionStarted       = errors.New("monitoring session already started")
	ErrNotificationMismatch = errors.New("notification already replaced")
)

type MonitoringOptions struct {
	Path      string
	Cooldown  time.Duration
	Snapshots repository.SnapshotRepo // optional
	Events    repository.EventRepo    // optional
	Now       func() time.Time
	Log       *logger.Logger
}

// MonitoringService is the single consumer of one monitoring session. It
// screens, classifies and debounces every pushed snapshot and keeps the
// state the dashboard renders.
type MonitoringService struct {
	source      SnapshotSource
	maintenance Maintenance
	debouncer   *Debouncer
	snapshots   repository.SnapshotRepo
	events      repository.EventRepo
	path        string
	now         func() time.Time
	log         *logger.Logger

	mu            sync.Mutex
	latest        models.Snapshot
	statuses      models.Statuses
	abnormal      AbnormalSet
	lastUpdatedAt time.Time
	stale         bool
	pending       *models.Notification
	started       bool
	closed        bool
	unsubscribe   func()
}

func NewMonitoringService(source SnapshotSource, maintenance Maintenance, opts MonitoringOptions) *MonitoringService {
	cooldown := opts.Cooldown
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	path := opts.Path
	if path == "" {
		path = "Sensors"
	}
	return &MonitoringService{
		source:      source,
		maintenance: maintenance,
		debouncer:   NewDebouncer(cooldown),
		snapshots:   opts.Snapshots,
		events:      opts.Events,
		path:        path,
		now:         now,
		log:         opts.Log,
		statuses:    ClassifyAll(models.Snapshot{}),
	}
}

// Start seeds the state from the last stored snapshot, subscribes to the
// source and runs the maintenance check once. A failed maintenance check is
// logged and does not stop the session.
func (s *MonitoringService) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.started:
		s.mu.Unlock()
		return ErrSessionStarted
	}
	s.started = true
	s.mu.Unlock()

	s.seedFromStore(ctx)

	unsub, err := s.source.Subscribe(s.path, s.HandleSnapshot, s.HandleError)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsub()
		return ErrSessionClosed
	}
	s.unsubscribe = unsub
	s.mu.Unlock()

	if _, err := s.CheckMaintenance(ctx); err != nil {
		s.logError("maintenance_check_failed", err)
	}
	return nil
}

// Close unsubscribes. Handlers that race with Close see closed and return
// without touching state.
func (s *MonitoringService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// HandleSnapshot evaluates one pushed snapshot. Abnormal readings raise a
// fault and skip range alerting for this cycle.
func (s *MonitoringService) HandleSnapshot(snap models.Snapshot) {
	now := s.now()
	if snap.ReceivedAt.IsZero() {
		snap.ReceivedAt = now
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.latest = snap
	s.lastUpdatedAt = now
	s.stale = false
	s.statuses = ClassifyAll(snap)
	s.abnormal = ClassifyAbnormal(snap)

	var n *models.Notification
	if !s.abnormal.Empty() {
		n = &models.Notification{
			Kind:      models.NotificationFault,
			Message:   FaultMessage(s.abnormal),
			Sensors:   append([]models.SensorKind(nil), s.abnormal...),
			CreatedAt: now,
		}
	} else {
		n = s.debouncer.Evaluate(s.statuses, now)
	}
	if n != nil {
		n.ID = uuid.NewString()
		s.pending = n
	}
	statuses := copyStatuses(s.statuses)
	s.mu.Unlock()

	metrics.SnapshotsTotal.Inc()
	observeSnapshot(snap, statuses)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if n != nil {
		s.record(ctx, *n)
	}
	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, snap); err != nil {
			s.logError("snapshot_save_failed", err)
		}
	}
}

// HandleError receives adapter failures. Prior values stay in place and are
// flagged stale.
func (s *MonitoringService) HandleError(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stale = true
	s.mu.Unlock()

	metrics.IngestErrorsTotal.Inc()
	s.logError("ingest_error", err, "path", s.path)

	if s.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		_ = s.events.Append(ctx, models.SensorEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  s.now(),
			Type:        EventIngestError,
			Description: err.Error(),
			Metadata:    map[string]any{"path": s.path},
		})
	}
}

// GetState returns a copy of the dashboard state.
func (s *MonitoringService) GetState(ctx context.Context) (models.DashboardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.DashboardState{
		Temperature: s.latest.Temperature,
		Humidity:    s.latest.Humidity,
		GasLevel:    s.latest.Gas,
		Statuses:    copyStatuses(s.statuses),
		Stale:       s.stale,
	}
	if !s.abnormal.Empty() {
		st.Abnormal = append([]models.SensorKind(nil), s.abnormal...)
	}
	if !s.lastUpdatedAt.IsZero() {
		t := s.lastUpdatedAt.UTC()
		st.LastUpdatedAt = &t
	}
	if s.pending != nil {
		n := *s.pending
		st.Notification = &n
	}
	return st, nil
}

// Dismiss clears the pending notification. A non-empty id must match the
// pending one, so a client cannot dismiss a message it has not seen.
func (s *MonitoringService) Dismiss(ctx context.Context, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	if notificationID != "" && s.pending.ID != notificationID {
		return ErrNotificationMismatch
	}
	s.pending = nil
	return nil
}

// CheckMaintenance runs the maintenance scheduler and surfaces its message.
func (s *MonitoringService) CheckMaintenance(ctx context.Context) (ResetResult, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ResetResult{}, ErrSessionClosed
	}
	if s.maintenance == nil {
		return ResetResult{}, nil
	}

	res, err := s.maintenance.MaybeReset(ctx, s.now())
	if res.Notification == nil {
		return res, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return res, err
	}
	s.pending = res.Notification
	s.mu.Unlock()

	s.record(ctx, *res.Notification)
	return res, err
}

// seedFromStore shows the last known values until the first push arrives.
func (s *MonitoringService) seedFromStore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	snap, ok, err := s.snapshots.Load(ctx)
	if err != nil {
		s.logError("snapshot_load_failed", err)
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastUpdatedAt.IsZero() {
		return
	}
	s.latest = snap
	s.statuses = ClassifyAll(snap)
	s.lastUpdatedAt = snap.ReceivedAt
	s.stale = true
}

func (s *MonitoringService) record(ctx context.Context, n models.Notification) {
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind)).Inc()
	if s.log != nil {
		s.log.Infow("notification_raised", "kind", n.Kind, "message", n.Message, "sensors", n.Sensors)
	}
	if s.events == nil {
		return
	}
	err := s.events.Append(ctx, models.SensorEvent{
		EventID:     n.ID,
		OccurredAt:  n.CreatedAt,
		Type:        eventTypeFor(n.Kind),
		Description: n.Message,
		Metadata:    map[string]any{"sensors": n.Sensors},
	})
	if err != nil {
		s.logError("event_append_failed", err, "kind", n.Kind)
	}
}

func (s *MonitoringService) logError(msg string, err error, kv ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.Errorw(msg, append([]interface{}{"err", err}, kv...)...)
}

func eventTypeFor(kind models.NotificationKind) string {
	switch kind {
	case models.NotificationFault:
		return EventFault
	case models.NotificationMaintenance:
		return EventReset
	default:
		return EventAlert
	}
}

func copyStatuses(in models.Statuses) models.Statuses {
	out := make(models.Statuses, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func observeSnapshot(snap models.Snapshot, statuses models.Statuses) {
	for _, kind := range models.SensorKinds {
		if v := snap.Value(kind); v != nil {
			metrics.SensorValue.WithLabelValues(string(kind)).Set(*v)
		}
		for _, st := range []models.Status{models.StatusUnclassified, models.StatusGood, models.StatusModerate, models.StatusPoor} {
			val := 0.0
			if statuses[kind] == st {
				val = 1
			}
			metrics.SensorStatus.WithLabelValues(string(kind), string(st)).Set(val)
		}
	}
}
