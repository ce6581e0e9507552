package orchestrator

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/shayc/council/internal/adapter"
	"github.com/shayc/council/internal/cdp"
	"github.com/shayc/council/pkg/models"
)

// SessionHandle binds one agent, in one role, to a live communication
// channel for the duration of a run. Exactly one handle exists per
// (agent, role) pair per run.
type SessionHandle struct {
	// Agent is the bound agent definition.
	Agent models.Agent
	// Role is the capacity the agent serves in for this run.
	Role models.Role
	// Channel is the live channel, nil until discovered.
	Channel adapter.Channel
	// Failed is set once the handle is judged unrecoverable.
	Failed bool
}

// Key returns the map key for a handle: agent ID qualified by role, so an
// agent serving as both council member and judge gets two handles.
func (h *SessionHandle) Key() string {
	return h.Agent.ID + "/" + string(h.Role)
}

// Close releases the handle's channel, if any.
func (h *SessionHandle) Close() {
	if h.Channel != nil {
		h.Channel.Close()
		h.Channel = nil
	}
}

// TargetLister lists the browser's open page targets.
// *cdp.Client satisfies it; tests substitute fakes.
type TargetLister interface {
	Targets(ctx context.Context) ([]cdp.Target, error)
}

// ChannelOpener opens a channel onto one target.
type ChannelOpener func(ctx context.Context, target cdp.Target) (adapter.Channel, error)

// Discoverer binds agents to browser tabs.
type Discoverer struct {
	targets TargetLister
	open    ChannelOpener
	// settle is how long to wait before trusting the absence of a match,
	// since tabs become reachable only after load and hydration.
	settle time.Duration
	// rediscover is the delay before the final re-attempt.
	rediscover time.Duration
}

// NewDiscoverer creates a Discoverer over a DevTools client.
func NewDiscoverer(client *cdp.Client, settle, rediscover time.Duration) *Discoverer {
	return &Discoverer{
		targets: client,
		open: func(ctx context.Context, t cdp.Target) (adapter.Channel, error) {
			return cdp.Dial(ctx, t.WebSocketDebuggerURL)
		},
		settle:     settle,
		rediscover: rediscover,
	}
}

// NewDiscovererWithOpener creates a Discoverer with a custom lister and
// opener (for testing).
func NewDiscovererWithOpener(targets TargetLister, open ChannelOpener, settle, rediscover time.Duration) *Discoverer {
	return &Discoverer{targets: targets, open: open, settle: settle, rediscover: rediscover}
}

// Discover binds the handle to a matching tab. It is idempotent: an
// already-bound handle is returned unchanged. Absence of a match is only
// trusted after the settle interval, and one re-attempt is made after an
// additional delay before the handle is marked failed.
func (d *Discoverer) Discover(ctx context.Context, h *SessionHandle) error {
	if h.Channel != nil {
		return nil
	}

	delays := []time.Duration{0, d.settle, d.rediscover}
	var lastErr error
	for i, delay := range delays {
		if delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}

		ch, err := d.attempt(ctx, h.Agent)
		if err == nil {
			h.Channel = ch
			h.Failed = false
			log.Printf("[discovery] bound %s (%s) to a channel on attempt %d", h.Agent.ID, h.Role, i+1)
			return nil
		}
		lastErr = err
	}

	h.Failed = true
	log.Printf("[discovery] %s (%s) unreachable: %v", h.Agent.ID, h.Role, lastErr)
	return fmt.Errorf("%w: %s: %v", ErrDiscoveryFailed, h.Agent.ID, lastErr)
}

// attempt makes one pass over the current targets.
func (d *Discoverer) attempt(ctx context.Context, agent models.Agent) (adapter.Channel, error) {
	targets, err := d.targets.Targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	for _, t := range targets {
		if !MatchesAgent(agent, t.URL) {
			continue
		}
		if t.WebSocketDebuggerURL == "" {
			continue
		}
		ch, err := d.open(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("opening channel on %s: %w", t.URL, err)
		}
		return ch, nil
	}
	return nil, fmt.Errorf("no tab matches %s", agent.ID)
}

// MatchesAgent reports whether a tab URL belongs to the agent. Configured
// patterns are checked first as substrings; the fallback compares the tab
// host against the agent's canonical entry host, allowing subdomains.
func MatchesAgent(agent models.Agent, tabURL string) bool {
	for _, p := range agent.URLPatterns {
		if p != "" && strings.Contains(tabURL, p) {
			return true
		}
	}

	u, err := url.Parse(tabURL)
	if err != nil || u.Host == "" {
		return false
	}
	entry, err := url.Parse(agent.EntryURL)
	if err != nil || entry.Host == "" {
		return false
	}
	return sameSite(u.Host, entry.Host)
}

// sameSite reports whether two hosts are the same site, treating www and
// other subdomains of the canonical host as matches.
func sameSite(host, canonical string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	canonical = strings.ToLower(strings.TrimPrefix(canonical, "www."))
	if host == canonical {
		return true
	}
	return strings.HasSuffix(host, "."+canonical)
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
