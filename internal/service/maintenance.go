package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"air_monitor/internal/logger"
	"air_monitor/internal/metrics"
	"air_monitor/internal/models"
	"air_monitor/internal/repository"

	"github.com/google/uuid"
)

// DefaultMaintenanceInterval is how often the device gets a scheduled reset.
const DefaultMaintenanceInterval = 7 * 24 * time.Hour

// MaintenanceMessage is shown after a scheduled reset.
const MaintenanceMessage = "Scheduled weekly reset performed."

// ResetResult describes one MaybeReset call.
type ResetResult struct {
	Performed    bool                 `json:"performed"`
	LastResetAt  time.Time            `json:"last_reset_at,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// MaintenanceService decides when the weekly reset is due and performs it.
//
// Calls within the process are serialized by mu. The store's compare-and-swap
// makes sure only one of several processes performs a given reset.
type MaintenanceService struct {
	repo     repository.MaintenanceRepo
	resetter DeviceResetter
	interval time.Duration
	log      *logger.Logger

	mu sync.Mutex
}

func NewMaintenanceService(repo repository.MaintenanceRepo, resetter DeviceResetter, interval time.Duration, log *logger.Logger) *MaintenanceService {
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	return &MaintenanceService{repo: repo, resetter: resetter, interval: interval, log: log}
}

// MaybeReset performs the reset when no record exists or the last one is at
// least one interval old. The timestamp is claimed before the side effect so
// a concurrent caller cannot fire a second reset.
func (s *MaintenanceService) MaybeReset(ctx context.Context, now time.Time) (ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.repo.Load(ctx)
	if err != nil {
		metrics.MaintenanceResetsTotal.WithLabelValues("failed").Inc()
		return ResetResult{}, fmt.Errorf("load maintenance record: %w", err)
	}

	var prev *time.Time
	if ok {
		if now.Sub(rec.LastResetAt) < s.interval {
			metrics.MaintenanceResetsTotal.WithLabelValues("not_due").Inc()
			return ResetResult{LastResetAt: rec.LastResetAt}, nil
		}
		last := rec.LastResetAt
		prev = &last
	}

	swapped, err := s.repo.CompareAndSwap(ctx, prev, now)
	if err != nil {
		metrics.MaintenanceResetsTotal.WithLabelValues("failed").Inc()
		return ResetResult{}, fmt.Errorf("claim maintenance reset: %w", err)
	}
	if !swapped {
		metrics.MaintenanceResetsTotal.WithLabelValues("lost_race").Inc()
		s.logInfo("maintenance_reset_claimed_elsewhere")
		latest, _, _ := s.repo.Load(ctx)
		return ResetResult{LastResetAt: latest.LastResetAt}, nil
	}

	if s.resetter != nil {
		if err := s.resetter.Reset(ctx); err != nil {
			metrics.MaintenanceResetsTotal.WithLabelValues("failed").Inc()
			return ResetResult{LastResetAt: now}, fmt.Errorf("device reset: %w", err)
		}
	}

	metrics.MaintenanceResetsTotal.WithLabelValues("performed").Inc()
	s.logInfo("maintenance_reset_performed", "at", now)
	return ResetResult{
		Performed:   true,
		LastResetAt: now,
		Notification: &models.Notification{
			ID:        uuid.NewString(),
			Kind:      models.NotificationMaintenance,
			Message:   MaintenanceMessage,
			CreatedAt: now,
		},
	}, nil
}

// Record returns the persisted maintenance record.
func (s *MaintenanceService) Record(ctx context.Context) (models.MaintenanceRecord, bool, error) {
	return s.repo.Load(ctx)
}

func (s *MaintenanceService) logInfo(msg string, kv ...interface{}) {
	if s.log != nil {
		s.log.Infow(msg, kv...)
	}
}
