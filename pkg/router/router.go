package router

import (
	"net/http"
	"strings"
	"sync"

	"github.com/cuemby/beacon/pkg/types"
)

// TargetHeader lets a request pin a specific coordinator by ID or by the
// hostname of its tunnel endpoint. Without it, selection is round-robin.
const TargetHeader = "X-Beacon-Coordinator"

// CoordinatorSource supplies coordinator snapshots and accepts suspect marks.
// Implemented by pkg/directory.
type CoordinatorSource interface {
	List() []*types.Coordinator
	MarkSuspect(id string)
}

// selector picks forwarding candidates. Round-robin state is the only thing
// it owns; everything else comes from the source per request.
type selector struct {
	source CoordinatorSource

	mu      sync.Mutex
	rrIndex int
}

// candidates returns the ordered list of coordinators to try for this
// request: non-suspect coordinators, rotated round-robin, or narrowed to a
// direct match when the request names a target. Suspect coordinators are
// only excluded, never removed; the mark clears when they are seen again.
func (s *selector) candidates(req *http.Request) []*types.Coordinator {
	all := s.source.List()

	live := make([]*types.Coordinator, 0, len(all))
	for _, c := range all {
		if !c.Suspect {
			live = append(live, c)
		}
	}

	if target := req.Header.Get(TargetHeader); target != "" {
		matched := make([]*types.Coordinator, 0, 1)
		for _, c := range live {
			if matchesTarget(c, target) {
				matched = append(matched, c)
			}
		}
		return matched
	}

	if len(live) == 0 {
		return nil
	}

	s.mu.Lock()
	start := s.rrIndex % len(live)
	s.rrIndex = (start + 1) % len(live)
	s.mu.Unlock()

	rotated := make([]*types.Coordinator, 0, len(live))
	rotated = append(rotated, live[start:]...)
	rotated = append(rotated, live[:start]...)
	return rotated
}

// matchesTarget reports whether a coordinator matches a requested target,
// by ID or by tunnel hostname
func matchesTarget(c *types.Coordinator, target string) bool {
	if c.ID == target {
		return true
	}
	return matchHost(target, tunnelHost(c.TunnelURL))
}

// tunnelHost extracts the hostname from a tunnel URL
func tunnelHost(tunnelURL string) string {
	host := tunnelURL
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.IndexByte(host, '/'); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.IndexByte(host, ':'); idx != -1 {
		host = host[:idx]
	}
	return host
}

// matchHost checks if the host matches the pattern. Supports exact matches
// and wildcard patterns (*.example.com).
func matchHost(pattern, host string) bool {
	if pattern == "" {
		return false
	}
	if idx := strings.IndexByte(pattern, ':'); idx != -1 {
		pattern = pattern[:idx]
	}
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	return false
}
