package metrics

import (
	"time"

	"github.com/cuemby/beacon/pkg/health"
	"github.com/cuemby/beacon/pkg/types"
)

// WorkerSource supplies worker snapshots to the collector
type WorkerSource interface {
	Snapshot() []*types.Worker
}

// Collector periodically refreshes the fleet gauges from a worker snapshot.
// Counters are incremented inline by the owning packages; only the derived
// gauges need a ticker.
type Collector struct {
	source       WorkerSource
	interval     time.Duration
	offlineAfter time.Duration
	stopCh       chan struct{}
}

// NewCollector creates a collector over the given source
func NewCollector(source WorkerSource, interval, offlineAfter time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:       source,
		interval:     interval,
		offlineAfter: offlineAfter,
		stopCh:       make(chan struct{}),
	}
}

// Start begins collecting gauges
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	workers := c.source.Snapshot()
	now := time.Now()

	// Reset label combinations that may have gone empty
	WorkersTotal.Reset()
	TierLoadAverage.Reset()

	var tasks int64
	for _, w := range workers {
		status := health.Status(w, now, c.offlineAfter)
		WorkersTotal.WithLabelValues(w.Tier.String(), string(status)).Inc()
		tasks += w.TasksCompleted
	}
	TasksCompletedSum.Set(float64(tasks))

	for _, tier := range []types.Tier{types.TierGPU, types.TierService, types.TierData} {
		if avg, ok := health.TierAverageLoad(workers, tier); ok {
			TierLoadAverage.WithLabelValues(tier.String()).Set(avg)
		}
	}

	state, _ := health.SystemHealth(workers, now, c.offlineAfter)
	for _, s := range []types.SystemHealth{types.SystemHealthy, types.SystemDegraded, types.SystemError} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		SystemHealthState.WithLabelValues(string(s)).Set(v)
	}
}
