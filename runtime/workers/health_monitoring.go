package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"quick-chat/observability"
)

// HealthMonitoringWorker samples the server's own CPU and RAM usage on a
// fixed interval and feeds the monitoring manager for the status endpoint.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, monitoring *observability.MonitoringManager,
	metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, monitoring: monitoring, metricInterval: metricInterval}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := p.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			w.monitoring.UpdateProcessStats(cpu, ram)
		}
	}
}
