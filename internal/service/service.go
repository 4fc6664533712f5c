package service

import (
	"context"
	"time"

	"air_monitor/internal/logger"
	"air_monitor/internal/models"
	"air_monitor/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the dashboard state and the pending notification.
type Monitoring interface {
	GetState(ctx context.Context) (models.DashboardState, error)
	Dismiss(ctx context.Context, notificationID string) error
	CheckMaintenance(ctx context.Context) (ResetResult, error)
}

// Session owns the subscription lifecycle.
type Session interface {
	Start(ctx context.Context) error
	Close()
}

// Maintenance exposes the persisted reset record.
type Maintenance interface {
	MaybeReset(ctx context.Context, now time.Time) (ResetResult, error)
	Record(ctx context.Context) (models.MaintenanceRecord, bool, error)
}

type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.SensorEvent, error)
}

// Simulator publishes synthetic snapshots until ctx is canceled.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

// SnapshotSource is the push contract of an ingest adapter: handlers are
// called with the latest full snapshot, errors arrive on their own channel.
type SnapshotSource interface {
	Subscribe(path string, onSnap func(models.Snapshot), onErr func(error)) (unsubscribe func(), err error)
}

// DeviceResetter performs the maintenance reset side effect.
type DeviceResetter interface {
	Reset(ctx context.Context) error
}

// SnapshotPublisher accepts simulated snapshots.
type SnapshotPublisher interface {
	Publish(path string, s models.Snapshot)
}

type Service struct {
	Monitoring
	Session
	Maintenance
	EventLog
	Simulator
	Authorization
}

// Deps are the collaborators that live outside the repository layer.
type Deps struct {
	Source   SnapshotSource
	Resetter DeviceResetter
	Feed     SnapshotPublisher // non-nil enables the simulator
	Log      *logger.Logger
	Config   Config
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	cfg := deps.Config
	maintenance := NewMaintenanceService(repos.Maintenance, deps.Resetter, cfg.MaintenanceInterval, deps.Log.Component("maintenance"))
	session := NewMonitoringService(deps.Source, maintenance, MonitoringOptions{
		Path:      cfg.Path,
		Cooldown:  cfg.AlertCooldown,
		Snapshots: repos.SnapshotRepo,
		Events:    repos.EventRepo,
		Log:       deps.Log.Component("monitoring"),
	})

	svc := &Service{
		Monitoring:    session,
		Session:       session,
		Maintenance:   maintenance,
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey, cfg.TokenTTL),
	}
	if deps.Feed != nil {
		svc.Simulator = NewSimulatorService(deps.Feed, cfg.Path)
	}
	return svc
}
