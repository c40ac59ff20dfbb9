// Package observability aggregates runtime telemetry for the status endpoint
// and the debug inspector.
package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats is the snapshot rendered by /api/status.
type MonitoringStats struct {
	Delivered     uint64  `json:"delivered"`
	Buffered      uint64  `json:"buffered"`
	Broadcasts    uint64  `json:"broadcasts"`
	PushFailures  uint64  `json:"push_failures"`
	MessagesSaved uint64  `json:"messages_saved"`
	OnlineUsers   int     `json:"online_users"`
	AllocMemMb    uint64  `json:"alloc_mem_mb"`
	NumGC         uint32  `json:"num_gc"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float32 `json:"ram_percent"`
}

// MonitoringManager collects counters from the delivery path with atomics so
// the hot path never takes a lock.
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats

	delivered     uint64
	buffered      uint64
	broadcasts    uint64
	pushFailures  uint64
	messagesSaved uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log}
}

func (mm *MonitoringManager) IncrDelivered()     { atomic.AddUint64(&mm.delivered, 1) }
func (mm *MonitoringManager) IncrBuffered()      { atomic.AddUint64(&mm.buffered, 1) }
func (mm *MonitoringManager) IncrBroadcast()     { atomic.AddUint64(&mm.broadcasts, 1) }
func (mm *MonitoringManager) IncrPushFailure()   { atomic.AddUint64(&mm.pushFailures, 1) }
func (mm *MonitoringManager) IncrMessagesSaved() { atomic.AddUint64(&mm.messagesSaved, 1) }

// UpdateOnline records the size of the last presence snapshot.
func (mm *MonitoringManager) UpdateOnline(n int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.OnlineUsers = n
}

// UpdateProcessStats merges self-process metrics collected by the health
// monitoring worker.
func (mm *MonitoringManager) UpdateProcessStats(cpu float64, ram float32) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.CPUPercent = cpu
	mm.latestStats.RAMPercent = ram
}

// Listen refreshes the delivery counters and Go memory stats on a fixed tick
// until the context is canceled.
func (mm *MonitoringManager) Listen(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Info("Monitoring manager stopped")
			return
		case <-ticker.C:
			mm.updateStats()
		}
	}
}

func (mm *MonitoringManager) updateStats() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.latestStats.Delivered = atomic.LoadUint64(&mm.delivered)
	mm.latestStats.Buffered = atomic.LoadUint64(&mm.buffered)
	mm.latestStats.Broadcasts = atomic.LoadUint64(&mm.broadcasts)
	mm.latestStats.PushFailures = atomic.LoadUint64(&mm.pushFailures)
	mm.latestStats.MessagesSaved = atomic.LoadUint64(&mm.messagesSaved)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC

	mm.log.Debug("Stats refreshed",
		"delivered", mm.latestStats.Delivered,
		"buffered", mm.latestStats.Buffered,
		"broadcasts", mm.latestStats.Broadcasts,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
