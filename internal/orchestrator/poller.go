package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shayc/council/internal/adapter"
)

// Poller watches session handles for completed responses.
type Poller struct {
	adapters *adapter.Registry
	interval time.Duration
}

// NewPoller creates a Poller with the given poll interval.
func NewPoller(adapters *adapter.Registry, interval time.Duration) *Poller {
	return &Poller{adapters: adapters, interval: interval}
}

// Poll asks the handle once whether generation has finished. It is cheap,
// non-blocking beyond the adapter call, and never fatal: any error is
// reported as not-yet-complete and retried on the next cycle.
func (p *Poller) Poll(ctx context.Context, h *SessionHandle) (complete bool, text string) {
	if h.Channel == nil {
		return false, ""
	}
	ad, err := p.adapters.Get(h.Agent.ID)
	if err != nil {
		return false, ""
	}

	done, err := ad.IsGenerationComplete(ctx, h.Channel)
	if err != nil {
		log.Printf("[poller] %s: poll error (will retry): %v", h.Agent.ID, err)
		return false, ""
	}
	if !done {
		return false, ""
	}

	out, err := ad.ReadLatestResponseText(ctx, h.Channel)
	if err != nil {
		log.Printf("[poller] %s: read error (will retry): %v", h.Agent.ID, err)
		return false, ""
	}
	if out == "" {
		// Complete with no text is treated as still pending.
		return false, ""
	}
	return true, out
}

// AwaitCompletion polls the handle until it completes with non-empty text
// or the timeout elapses, in which case it returns ErrTimeout.
func (p *Poller) AwaitCompletion(ctx context.Context, h *SessionHandle, timeout time.Duration) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.await(waitCtx, ctx, h)
}

// await runs the poll loop until waitCtx expires. The parent context is
// consulted separately so caller cancellation is distinguishable from the
// deadline.
func (p *Poller) await(waitCtx, parent context.Context, h *SessionHandle) (string, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if done, text := p.Poll(waitCtx, h); done {
			return text, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if parent.Err() != nil {
				return "", parent.Err()
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %s", ErrTimeout, h.Agent.ID)
			}
			return "", waitCtx.Err()
		}
	}
}

// CouncilUpdate is one agent's outcome from a shared-deadline wait.
type CouncilUpdate struct {
	// AgentID is the agent the update belongs to.
	AgentID string
	// Text is the collected response, empty on failure.
	Text string
	// Err is nil on success, ErrTimeout when the shared deadline elapsed.
	Err error
}

// AwaitCouncil polls every handle concurrently against one shared deadline
// and streams each agent's outcome as it settles. The returned channel is
// closed once every handle has reported. Completion order is unordered;
// first finished, first reported.
func (p *Poller) AwaitCouncil(ctx context.Context, handles []*SessionHandle, deadline time.Duration) <-chan CouncilUpdate {
	updates := make(chan CouncilUpdate, len(handles))

	waitCtx, cancel := context.WithTimeout(ctx, deadline)

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *SessionHandle) {
			defer wg.Done()
			text, err := p.await(waitCtx, ctx, h)
			updates <- CouncilUpdate{AgentID: h.Agent.ID, Text: text, Err: err}
		}(h)
	}

	go func() {
		wg.Wait()
		cancel()
		close(updates)
	}()

	return updates
}
