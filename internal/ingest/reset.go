package ingest

import (
	"context"

	"air_monitor/internal/logger"
)

// LogResetter stands in for a device when snapshots come from the simulator:
// a reset is only logged.
type LogResetter struct {
	Log *logger.Logger
}

func (r LogResetter) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Log != nil {
		r.Log.Infow("device_reset_requested", "target", "simulator")
	}
	return nil
}
