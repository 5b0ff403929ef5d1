package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/metrics"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRoutingFailure is returned when no coordinator could serve the request
// within the bounded retry: the first attempt plus at most one failover.
var ErrRoutingFailure = errors.New("no live coordinator available")

// maxBufferedBody bounds how much request body is held for the failover
// replay. Larger bodies disable the retry rather than the forward.
const maxBufferedBody = 8 << 20

// Proxy forwards inbound requests to a live edge coordinator. On a failed
// forward it marks the coordinator suspect and retries against the next
// candidate exactly once; a second failure is surfaced as a gateway error,
// never an unbounded retry loop.
type Proxy struct {
	sel       *selector
	source    CoordinatorSource
	timeout   time.Duration
	transport http.RoundTripper
	logger    zerolog.Logger
}

// NewProxy creates a routing proxy over the given coordinator source
func NewProxy(source CoordinatorSource, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Proxy{
		sel:     &selector{source: source},
		source:  source,
		timeout: timeout,
		transport: &http.Transport{
			ResponseHeaderTimeout: timeout,
			MaxIdleConnsPerHost:   16,
		},
		logger: log.WithComponent("router"),
	}
}

// ServeHTTP implements the routing entry point
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := p.logger.With().Str("request_id", requestID).Logger()

	candidates := p.sel.candidates(r)
	if len(candidates) == 0 {
		metrics.RouteRequestsTotal.WithLabelValues("no_candidate").Inc()
		logger.Warn().Str("path", r.URL.Path).Msg("no live coordinator for request")
		http.Error(w, "no live coordinator available", http.StatusBadGateway)
		return
	}

	// Buffer the body once so the single failover can replay it
	body, replayable := bufferBody(r)

	first := candidates[0]
	err := p.forward(w, r, first, body, requestID)
	if err == nil {
		metrics.RouteRequestsTotal.WithLabelValues("ok").Inc()
		return
	}

	p.source.MarkSuspect(first.ID)
	logger.Warn().
		Str("coordinator_id", first.ID).
		Err(err).
		Msg("forward failed, coordinator marked suspect")

	// Honor the caller's deadline: if it expired mid-route, report a
	// timeout instead of silently retrying.
	if r.Context().Err() != nil {
		metrics.RouteRequestsTotal.WithLabelValues("timeout").Inc()
		http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
		return
	}

	if len(candidates) < 2 || !replayable {
		metrics.RouteRequestsTotal.WithLabelValues("failed").Inc()
		http.Error(w, ErrRoutingFailure.Error(), http.StatusBadGateway)
		return
	}

	second := candidates[1]
	metrics.FailoversTotal.Inc()
	logger.Info().
		Str("coordinator_id", second.ID).
		Msg("retrying against alternate coordinator")

	if err := p.forward(w, r, second, body, requestID); err != nil {
		p.source.MarkSuspect(second.ID)
		if r.Context().Err() != nil {
			metrics.RouteRequestsTotal.WithLabelValues("timeout").Inc()
			http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
			return
		}
		metrics.RouteRequestsTotal.WithLabelValues("failed").Inc()
		logger.Error().
			Str("coordinator_id", second.ID).
			Err(err).
			Msg("failover attempt failed")
		http.Error(w, ErrRoutingFailure.Error(), http.StatusBadGateway)
		return
	}
	metrics.RouteRequestsTotal.WithLabelValues("failover_ok").Inc()
}

// forward proxies one attempt to a single coordinator. A returned error
// means the backend was not reached and nothing was written to w; the
// attempt may be retried.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, c *types.Coordinator, body []byte, requestID string) error {
	target, err := url.Parse(c.TunnelURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	req := r.Clone(ctx)
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
	}

	var forwardErr error
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = p.transport

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Forwarded-For", r.RemoteAddr)
		req.Header.Set("X-Forwarded-Host", r.Host)
		req.Header.Set("X-Beacon-Request-Id", requestID)
	}

	// Record the failure instead of writing 502 so the caller can decide
	// whether a failover attempt is still allowed.
	proxy.ErrorHandler = func(http.ResponseWriter, *http.Request, error) {
		forwardErr = ctx.Err()
		if forwardErr == nil {
			forwardErr = errors.New("coordinator unreachable")
		}
	}

	proxy.ServeHTTP(w, req)
	return forwardErr
}

// bufferBody reads the request body into memory for replay. Oversized or
// unreadable bodies yield replayable=false, which disables the failover for
// this request only; the body itself must still reach the backend whole, so
// the buffered prefix is stitched back in front of the unread remainder.
func bufferBody(r *http.Request) (body []byte, replayable bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, true
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBufferedBody+1))
	if err != nil || len(data) > maxBufferedBody {
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), r.Body))
		return nil, false
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, true
}
