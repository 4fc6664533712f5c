package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"air_monitor/internal/logger"
	"air_monitor/internal/models"
)

// ---- Test doubles ----

// fakeSource captures the handlers a session subscribes with.
type fakeSource struct {
	mu      sync.Mutex
	path    string
	onSnap  func(models.Snapshot)
	onErr   func(error)
	unsubs  int
	failErr error
}

func (f *fakeSource) Subscribe(path string, onSnap func(models.Snapshot), onErr func(error)) (func(), error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.path, f.onSnap, f.onErr = path, onSnap, onErr
	return func() {
		f.mu.Lock()
		f.unsubs++
		f.mu.Unlock()
	}, nil
}

type memSnapshotRepo struct {
	mu    sync.Mutex
	saved []models.Snapshot
	seed  *models.Snapshot
}

func (r *memSnapshotRepo) Save(ctx context.Context, s models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, s)
	return nil
}

func (r *memSnapshotRepo) Load(ctx context.Context) (models.Snapshot, bool, error) {
	if r.seed == nil {
		return models.Snapshot{}, false, nil
	}
	return *r.seed, true, nil
}

// recordingEventRepo keeps appended events in memory.
type recordingEventRepo struct {
	mu     sync.Mutex
	events []models.SensorEvent
}

func (r *recordingEventRepo) Append(ctx context.Context, e models.SensorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.SensorEvent, error) {
	return nil, nil
}

func (r *recordingEventRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type stubMaintenance struct {
	calls int
	res   ResetResult
	err   error
}

func (s *stubMaintenance) MaybeReset(ctx context.Context, now time.Time) (ResetResult, error) {
	s.calls++
	return s.res, s.err
}

func (s *stubMaintenance) Record(ctx context.Context) (models.MaintenanceRecord, bool, error) {
	return models.MaintenanceRecord{}, false, nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type sessionFixture struct {
	svc    *MonitoringService
	source *fakeSource
	snaps  *memSnapshotRepo
	events *recordingEventRepo
	maint  *stubMaintenance
	clock  *testClock
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		source: &fakeSource{},
		snaps:  &memSnapshotRepo{},
		events: &recordingEventRepo{},
		maint:  &stubMaintenance{},
		clock:  &testClock{now: t0},
	}
	f.svc = NewMonitoringService(f.source, f.maint, MonitoringOptions{
		Cooldown:  30 * time.Second,
		Snapshots: f.snaps,
		Events:    f.events,
		Now:       f.clock.Now,
		Log:       logger.Nop(),
	})
	return f
}

// push delivers snap at t0+offset.
func (f *sessionFixture) push(offset time.Duration, temp, hum, gas float64) models.DashboardState {
	f.clock.now = t0.Add(offset)
	f.svc.HandleSnapshot(models.Snapshot{
		Temperature: models.Float(temp),
		Humidity:    models.Float(hum),
		Gas:         models.Float(gas),
	})
	st, _ := f.svc.GetState(context.Background())
	return st
}

// ---- Tests ----

func TestMonitoring_AlertLifecycle(t *testing.T) {
	f := newSessionFixture(t)

	st := f.push(0, 90, 25, 100)
	if st.Statuses[models.KindTemperature] != models.StatusPoor ||
		st.Statuses[models.KindHumidity] != models.StatusModerate ||
		st.Statuses[models.KindGas] != models.StatusGood {
		t.Fatalf("unexpected statuses %v", st.Statuses)
	}
	if st.Notification == nil || st.Notification.Message != "Poor reading detected: Temperature" {
		t.Fatalf("expected temperature alert, got %+v", st.Notification)
	}
	firstID := st.Notification.ID

	// Still poor: no new alert.
	st = f.push(time.Second, 90, 25, 100)
	if st.Notification == nil || st.Notification.ID != firstID {
		t.Fatalf("pending notification should be unchanged, got %+v", st.Notification)
	}

	// Recover then re-enter poor inside the cooldown: dropped.
	f.push(2*time.Second, 70, 25, 100)
	st = f.push(5*time.Second, 90, 25, 100)
	if st.Notification.ID != firstID {
		t.Fatal("re-entry inside cooldown must not raise a new alert")
	}

	// Recover then re-enter after the cooldown: new alert.
	f.push(40*time.Second, 70, 25, 100)
	st = f.push(41*time.Second, 90, 25, 100)
	if st.Notification == nil || st.Notification.ID == firstID {
		t.Fatalf("expected a new alert after cooldown, got %+v", st.Notification)
	}

	if got := f.events.types(); len(got) != 2 || got[0] != EventAlert || got[1] != EventAlert {
		t.Fatalf("expected two ALERT events, got %v", got)
	}
	if len(f.snaps.saved) != 6 {
		t.Fatalf("expected every snapshot persisted, got %d", len(f.snaps.saved))
	}
}

func TestMonitoring_AbnormalSkipsAlerting(t *testing.T) {
	f := newSessionFixture(t)

	// Humidity and gas are poor too; the fault still wins.
	st := f.push(0, 200, 90, 500)
	if len(st.Abnormal) != 1 || st.Abnormal[0] != models.KindTemperature {
		t.Fatalf("expected Temperature abnormal, got %v", st.Abnormal)
	}
	if st.Notification == nil || st.Notification.Kind != models.NotificationFault {
		t.Fatalf("expected fault notification, got %+v", st.Notification)
	}
	want := "Abnormal reading from Temperature: please check sensor and reset device."
	if st.Notification.Message != want {
		t.Fatalf("message = %q; want %q", st.Notification.Message, want)
	}
	if f.svc.debouncer.Notified(models.KindTemperature) || !f.svc.debouncer.LastAlertAt().IsZero() {
		t.Fatal("debouncer must not see an abnormal cycle")
	}

	// The next normal poor reading is a fresh transition.
	st = f.push(time.Second, 90, 30, 100)
	if st.Notification == nil || st.Notification.Kind != models.NotificationAlert {
		t.Fatalf("expected alert after abnormal cycle, got %+v", st.Notification)
	}
	if len(st.Abnormal) != 0 {
		t.Fatalf("abnormal set should clear, got %v", st.Abnormal)
	}
	if got := f.events.types(); len(got) != 2 || got[0] != EventFault || got[1] != EventAlert {
		t.Fatalf("unexpected event types %v", got)
	}
}

func TestMonitoring_ErrorMarksStale(t *testing.T) {
	f := newSessionFixture(t)
	f.push(0, 70, 10, 100)

	f.svc.HandleError(errors.New("broker gone"))

	st, err := f.svc.GetState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !st.Stale {
		t.Fatal("state should be stale after an ingest error")
	}
	if st.Temperature == nil || *st.Temperature != 70 {
		t.Fatalf("prior values must be kept, got %v", st.Temperature)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != EventIngestError {
		t.Fatalf("expected INGEST_ERROR event, got %v", got)
	}

	st = f.push(time.Second, 71, 10, 100)
	if st.Stale {
		t.Fatal("a fresh snapshot clears stale")
	}
}

func TestMonitoring_AbsentFieldsAreUnclassified(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.HandleSnapshot(models.Snapshot{Gas: models.Float(500)})

	st, _ := f.svc.GetState(context.Background())
	if st.Temperature != nil || st.Statuses[models.KindTemperature] != models.StatusUnclassified {
		t.Fatalf("absent temperature should be unclassified, got %+v", st)
	}
	if st.Notification == nil || st.Notification.Message != "Poor reading detected: Gas" {
		t.Fatalf("expected gas alert, got %+v", st.Notification)
	}
}

func TestMonitoring_Dismiss(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	if err := f.svc.Dismiss(ctx, ""); err != nil {
		t.Fatalf("dismiss with nothing pending: %v", err)
	}

	st := f.push(0, 90, 10, 100)
	if err := f.svc.Dismiss(ctx, "stale-id"); !errors.Is(err, ErrNotificationMismatch) {
		t.Fatalf("expected ErrNotificationMismatch, got %v", err)
	}
	if err := f.svc.Dismiss(ctx, st.Notification.ID); err != nil {
		t.Fatal(err)
	}
	st, _ = f.svc.GetState(ctx)
	if st.Notification != nil {
		t.Fatalf("notification should be cleared, got %+v", st.Notification)
	}
}

func TestMonitoring_StartSeedsSubscribesAndChecksMaintenance(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	seededAt := t0.Add(-time.Hour)
	f.snaps.seed = &models.Snapshot{Temperature: models.Float(65), ReceivedAt: seededAt}
	f.maint.res = ResetResult{
		Performed: true,
		Notification: &models.Notification{
			ID: "m-1", Kind: models.NotificationMaintenance, Message: MaintenanceMessage, CreatedAt: t0,
		},
	}

	if err := f.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.source.path != "Sensors" || f.source.onSnap == nil || f.source.onErr == nil {
		t.Fatalf("expected subscription to Sensors, got %+v", f.source)
	}
	if f.maint.calls != 1 {
		t.Fatalf("expected one maintenance check, got %d", f.maint.calls)
	}

	st, _ := f.svc.GetState(ctx)
	if !st.Stale || st.Temperature == nil || *st.Temperature != 65 {
		t.Fatalf("expected stale seeded state, got %+v", st)
	}
	if st.LastUpdatedAt == nil || !st.LastUpdatedAt.Equal(seededAt) {
		t.Fatalf("LastUpdatedAt = %v; want %v", st.LastUpdatedAt, seededAt)
	}
	if st.Notification == nil || st.Notification.ID != "m-1" {
		t.Fatalf("expected maintenance notification, got %+v", st.Notification)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != EventReset {
		t.Fatalf("expected RESET event, got %v", got)
	}

	// Delivery goes through the subscribed handler.
	f.source.onSnap(models.Snapshot{Temperature: models.Float(70)})
	st, _ = f.svc.GetState(ctx)
	if st.Stale || *st.Temperature != 70 {
		t.Fatalf("pushed snapshot should replace seed, got %+v", st)
	}

	if err := f.svc.Start(ctx); !errors.Is(err, ErrSessionStarted) {
		t.Fatalf("second Start: expected ErrSessionStarted, got %v", err)
	}
}

func TestMonitoring_StartToleratesMaintenanceError(t *testing.T) {
	f := newSessionFixture(t)
	f.maint.err = errors.New("store down")

	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("maintenance failure must not fail Start: %v", err)
	}
}

func TestMonitoring_StartSubscribeError(t *testing.T) {
	f := newSessionFixture(t)
	f.source.failErr = errors.New("dial failed")

	if err := f.svc.Start(context.Background()); !errors.Is(err, f.source.failErr) {
		t.Fatalf("expected subscribe error, got %v", err)
	}
	if f.maint.calls != 0 {
		t.Fatal("maintenance must not run without a subscription")
	}
}

func TestMonitoring_CloseStopsMutation(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	if err := f.svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	f.push(0, 70, 10, 100)

	f.svc.Close()
	f.svc.Close()
	if f.source.unsubs != 1 {
		t.Fatalf("expected one unsubscribe, got %d", f.source.unsubs)
	}

	f.svc.HandleSnapshot(models.Snapshot{Temperature: models.Float(95)})
	f.svc.HandleError(errors.New("late"))

	st, _ := f.svc.GetState(ctx)
	if *st.Temperature != 70 || st.Stale || st.Notification != nil {
		t.Fatalf("state changed after Close: %+v", st)
	}
	if _, err := f.svc.CheckMaintenance(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := f.svc.Start(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestMonitoring_ConcurrentDelivery(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.now = time.Now

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.svc.HandleSnapshot(models.Snapshot{Temperature: models.Float(90), Humidity: models.Float(float64(i % 40))})
		}(i)
	}
	wg.Wait()

	// One transition into poor, however the deliveries interleave.
	if got := f.events.types(); len(got) != 1 {
		t.Fatalf("expected exactly one alert, got %v", got)
	}
}
