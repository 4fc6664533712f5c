package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"air_monitor/internal/models"

	"github.com/redis/go-redis/v9"
)

// DefaultMaintenanceKey mirrors the key layout of the sensor store.
const DefaultMaintenanceKey = "Maintenance/lastResetAt"

// MaintenanceRedis keeps lastResetAt (unix ms) under a single Redis key.
type MaintenanceRedis struct {
	client *redis.Client
	key    string
}

func NewMaintenanceRedis(client *redis.Client, key string) *MaintenanceRedis {
	if key == "" {
		key = DefaultMaintenanceKey
	}
	return &MaintenanceRedis{client: client, key: key}
}

var _ MaintenanceRepo = (*MaintenanceRedis)(nil)

// NewRedisClient connects and pings, failing fast like InitDB does.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis at %q: %w", addr, err)
	}
	return client, nil
}

func (r *MaintenanceRedis) Load(ctx context.Context) (models.MaintenanceRecord, bool, error) {
	ms, err := r.client.Get(ctx, r.key).Int64()
	if errors.Is(err, redis.Nil) {
		return models.MaintenanceRecord{}, false, nil
	}
	if err != nil {
		return models.MaintenanceRecord{}, false, fmt.Errorf("get %s: %w", r.key, err)
	}
	return models.MaintenanceRecord{LastResetAt: time.UnixMilli(ms).UTC()}, true, nil
}

// CompareAndSwap uses WATCH/MULTI so a concurrent writer aborts our transaction.
func (r *MaintenanceRedis) CompareAndSwap(ctx context.Context, prev *time.Time, next time.Time) (bool, error) {
	if err := checkMonotonic(prev, next); err != nil {
		return false, err
	}

	swapped := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, r.key).Int64()
		switch {
		case errors.Is(err, redis.Nil):
			if prev != nil {
				return nil
			}
		case err != nil:
			return err
		default:
			if prev == nil || cur != prev.UnixMilli() {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, next.UnixMilli(), 0)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, r.key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("swap %s: %w", r.key, err)
	}
	return swapped, nil
}
