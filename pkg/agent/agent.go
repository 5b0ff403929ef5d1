package agent

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/beacon/pkg/client"
	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/rs/zerolog"
)

// Config holds agent configuration
type Config struct {
	WorkerID     string
	Tier         types.Tier
	Capabilities types.Capabilities
	ServerAddr   string

	// Interval between heartbeats, default 30s. A small jitter is added so
	// a fleet restarted together does not heartbeat in lockstep.
	Interval time.Duration
}

// Agent is the worker-side loop: register once, then heartbeat on a cadence.
// The task executor feeds it load and completion numbers; the agent owns the
// wire traffic.
type Agent struct {
	cfg    Config
	client *client.Client
	logger zerolog.Logger

	mu         sync.Mutex
	load       int
	tasksDone  int64
	containers []string
	degraded   bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates an agent for the given worker identity
func New(cfg Config) (*Agent, error) {
	if cfg.WorkerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}
	if !cfg.Tier.Valid() {
		return nil, fmt.Errorf("invalid tier %d", cfg.Tier)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Agent{
		cfg:    cfg,
		client: client.New(cfg.ServerAddr),
		logger: log.WithWorkerID(cfg.WorkerID),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start registers the worker and runs the heartbeat loop until Stop or
// context cancellation. Registration uses the re-register path so an agent
// restart resumes the same identity.
func (a *Agent) Start(ctx context.Context) error {
	if _, err := a.client.RegisterWorker(ctx, a.cfg.WorkerID, a.cfg.Tier, a.cfg.Capabilities, true); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	a.logger.Info().Str("tier", a.cfg.Tier.String()).Msg("registered with coordinator")

	go a.heartbeatLoop(ctx)
	return nil
}

// Stop halts the heartbeat loop and waits for it to exit. Safe to call more
// than once.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	<-a.doneCh
}

// SetLoad reports the current load percentage
func (a *Agent) SetLoad(load int) {
	a.mu.Lock()
	a.load = load
	a.mu.Unlock()
}

// SetDegraded raises or clears the self-reported degraded flag
func (a *Agent) SetDegraded(degraded bool) {
	a.mu.Lock()
	a.degraded = degraded
	a.mu.Unlock()
}

// SetContainers replaces the assigned container set
func (a *Agent) SetContainers(containers []string) {
	a.mu.Lock()
	a.containers = append([]string(nil), containers...)
	a.mu.Unlock()
}

// TaskDone increments the completed task counter
func (a *Agent) TaskDone() {
	a.mu.Lock()
	a.tasksDone++
	a.mu.Unlock()
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	defer close(a.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-time.After(a.jittered()):
			if err := a.sendHeartbeat(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

// jittered spreads heartbeats by up to 10% of the interval. Intervals too
// small to carry jitter are returned unchanged.
func (a *Agent) jittered() time.Duration {
	tenth := int64(a.cfg.Interval) / 10
	if tenth <= 0 {
		return a.cfg.Interval
	}
	return a.cfg.Interval + time.Duration(rand.Int63n(tenth))
}

func (a *Agent) sendHeartbeat(ctx context.Context) error {
	a.mu.Lock()
	load := a.load
	tasks := a.tasksDone
	containers := append([]string(nil), a.containers...)
	degraded := a.degraded
	a.mu.Unlock()

	res, code, err := a.client.Heartbeat(ctx, a.cfg.WorkerID, load, tasks, containers, degraded)
	if err != nil {
		// The server restarted and lost volatile worker state: re-register
		// and resume on the next tick.
		if code == http.StatusNotFound {
			a.logger.Info().Msg("unknown to server, re-registering")
			_, rerr := a.client.RegisterWorker(ctx, a.cfg.WorkerID, a.cfg.Tier, a.cfg.Capabilities, true)
			return rerr
		}
		return err
	}
	if res.RegressionRejected {
		a.logger.Warn().Int64("tasks_completed", tasks).Msg("server rejected task counter regression")
	}
	return nil
}
