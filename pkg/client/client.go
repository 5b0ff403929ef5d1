package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/beacon/pkg/types"
)

// Client wraps the Beacon HTTP API for CLI and agent usage
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at addr
func New(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// apiError is the JSON error envelope returned by the server
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, payload, out any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return resp.StatusCode, fmt.Errorf("%s", apiErr.Error)
		}
		return resp.StatusCode, fmt.Errorf("request failed: %s", resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// RegisterWorker registers (or re-registers) a worker
func (c *Client) RegisterWorker(ctx context.Context, id string, tier types.Tier, caps types.Capabilities, reregister bool) (*types.WorkerView, error) {
	var view types.WorkerView
	_, err := c.post(ctx, "/api/worker/register", map[string]any{
		"worker_id":    id,
		"tier":         tier.String(),
		"capabilities": caps,
		"reregister":   reregister,
	}, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// HeartbeatResult reports whether the server rejected a counter regression
type HeartbeatResult struct {
	Status             string `json:"status"`
	RegressionRejected bool   `json:"regression_rejected"`
}

// Heartbeat sends one worker heartbeat. The returned status code lets the
// agent distinguish an unknown worker (re-register) from a transport error.
func (c *Client) Heartbeat(ctx context.Context, id string, load int, tasksCompleted int64, containers []string, degraded bool) (*HeartbeatResult, int, error) {
	var res HeartbeatResult
	code, err := c.post(ctx, "/api/worker/heartbeat", map[string]any{
		"worker_id":       id,
		"load":            load,
		"tasks_completed": tasksCompleted,
		"containers":      containers,
		"degraded":        degraded,
	}, &res)
	if err != nil {
		return nil, code, err
	}
	return &res, code, nil
}

// Workers lists all workers with derived status
func (c *Client) Workers(ctx context.Context) ([]types.WorkerView, error) {
	var out struct {
		Workers []types.WorkerView `json:"workers"`
	}
	if _, err := c.get(ctx, "/api/admin/workers", &out); err != nil {
		return nil, err
	}
	return out.Workers, nil
}

// Stats returns the aggregate fleet view
func (c *Client) Stats(ctx context.Context) (*types.SystemStats, error) {
	var stats types.SystemStats
	if _, err := c.get(ctx, "/api/admin/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health returns the system health enum and reason
func (c *Client) Health(ctx context.Context) (types.SystemHealth, string, error) {
	var out struct {
		Health types.SystemHealth `json:"system_health"`
		Reason string             `json:"reason"`
	}
	if _, err := c.get(ctx, "/api/admin/health", &out); err != nil {
		return "", "", err
	}
	return out.Health, out.Reason, nil
}

// Coordinators lists registered edge coordinators
func (c *Client) Coordinators(ctx context.Context) ([]types.Coordinator, error) {
	var out struct {
		Coordinators []types.Coordinator `json:"coordinators"`
	}
	if _, err := c.get(ctx, "/api/admin/coordinators", &out); err != nil {
		return nil, err
	}
	return out.Coordinators, nil
}

// RemoveCoordinator deletes an edge coordinator from the directory
func (c *Client) RemoveCoordinator(ctx context.Context, id string) error {
	_, err := c.post(ctx, "/api/edge/remove", map[string]string{
		"coordinator_id": id,
	}, nil)
	return err
}

// Reap removes workers absent longer than the given duration and returns
// the removed IDs
func (c *Client) Reap(ctx context.Context, olderThan time.Duration) ([]string, error) {
	var out struct {
		Removed []string `json:"removed"`
	}
	_, err := c.post(ctx, "/api/admin/reap", map[string]any{
		"older_than_seconds": int64(olderThan.Seconds()),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Removed, nil
}
