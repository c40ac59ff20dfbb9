package workers

import (
	"context"

	"quick-chat/observability"
)

// StatsRefreshWorker adapts the monitoring manager's refresh loop to the
// Worker interface so the supervisor owns its lifecycle.
type StatsRefreshWorker struct {
	monitoring *observability.MonitoringManager
}

func NewStatsRefreshWorker(monitoring *observability.MonitoringManager) *StatsRefreshWorker {
	return &StatsRefreshWorker{monitoring: monitoring}
}

func (w *StatsRefreshWorker) Run(ctx context.Context) error {
	w.monitoring.Listen(ctx)
	return nil
}
