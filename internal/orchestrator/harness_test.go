package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shayc/council/internal/adapter"
	"github.com/shayc/council/internal/cdp"
	"github.com/shayc/council/pkg/models"
)

// nopChannel is a channel whose evaluations all succeed with zero values.
type nopChannel struct {
	closed atomic.Bool
}

func (c *nopChannel) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	return json.RawMessage("null"), nil
}

func (c *nopChannel) EvaluateBool(ctx context.Context, expr string) (bool, error) {
	return false, nil
}

func (c *nopChannel) EvaluateString(ctx context.Context, expr string) (string, error) {
	return "", nil
}

func (c *nopChannel) Close() error {
	c.closed.Store(true)
	return nil
}

// stubAdapter is an Adapter whose behavior is overridden per hook; any nil
// hook takes the happy-path default.
type stubAdapter struct {
	mu sync.Mutex

	ensure   func(ctx context.Context, ch adapter.Channel) error
	locate   func(ctx context.Context, ch adapter.Channel) (bool, error)
	setText  func(ctx context.Context, ch adapter.Channel, text string) error
	submit   func(ctx context.Context, ch adapter.Channel) (bool, error)
	complete func(ctx context.Context, ch adapter.Channel) (bool, error)
	read     func(ctx context.Context, ch adapter.Channel) (string, error)

	// delivered collects every text passed to SetText.
	delivered []string
}

func (a *stubAdapter) EnsureBindings(ctx context.Context, ch adapter.Channel) error {
	if a.ensure != nil {
		return a.ensure(ctx, ch)
	}
	return nil
}

func (a *stubAdapter) LocateInputSurface(ctx context.Context, ch adapter.Channel) (bool, error) {
	if a.locate != nil {
		return a.locate(ctx, ch)
	}
	return true, nil
}

func (a *stubAdapter) SetText(ctx context.Context, ch adapter.Channel, text string) error {
	a.mu.Lock()
	a.delivered = append(a.delivered, text)
	a.mu.Unlock()
	if a.setText != nil {
		return a.setText(ctx, ch, text)
	}
	return nil
}

func (a *stubAdapter) Submit(ctx context.Context, ch adapter.Channel) (bool, error) {
	if a.submit != nil {
		return a.submit(ctx, ch)
	}
	return true, nil
}

func (a *stubAdapter) IsGenerationComplete(ctx context.Context, ch adapter.Channel) (bool, error) {
	if a.complete != nil {
		return a.complete(ctx, ch)
	}
	return true, nil
}

func (a *stubAdapter) ReadLatestResponseText(ctx context.Context, ch adapter.Channel) (string, error) {
	if a.read != nil {
		return a.read(ctx, ch)
	}
	return "stub response", nil
}

func (a *stubAdapter) deliveredTexts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.delivered))
	copy(out, a.delivered)
	return out
}

// respondAfter returns completion hooks that report done with the given
// text after n not-yet-complete polls.
func respondAfter(n int, text string) (func(context.Context, adapter.Channel) (bool, error), func(context.Context, adapter.Channel) (string, error)) {
	var polls atomic.Int64
	complete := func(ctx context.Context, ch adapter.Channel) (bool, error) {
		return polls.Add(1) > int64(n), nil
	}
	read := func(ctx context.Context, ch adapter.Channel) (string, error) {
		return text, nil
	}
	return complete, read
}

// neverComplete is a completion hook that never finishes.
func neverComplete(ctx context.Context, ch adapter.Channel) (bool, error) {
	return false, nil
}

// fakeTargets is a TargetLister returning a fixed target list.
type fakeTargets struct {
	targets []cdp.Target
	err     error
	calls   atomic.Int64
}

func (f *fakeTargets) Targets(ctx context.Context) ([]cdp.Target, error) {
	f.calls.Add(1)
	return f.targets, f.err
}

func testAgent(id, name, entryURL string, patterns ...string) models.Agent {
	return models.Agent{ID: id, Name: name, EntryURL: entryURL, URLPatterns: patterns}
}

// fastDiscoverer binds every agent straight to a fresh nopChannel.
func fastDiscoverer(agents ...models.Agent) *Discoverer {
	targets := make([]cdp.Target, 0, len(agents))
	for _, a := range agents {
		targets = append(targets, cdp.Target{
			ID:                   "t-" + a.ID,
			Type:                 "page",
			URL:                  a.EntryURL,
			WebSocketDebuggerURL: "ws://fake/" + a.ID,
		})
	}
	open := func(ctx context.Context, t cdp.Target) (adapter.Channel, error) {
		return &nopChannel{}, nil
	}
	return NewDiscovererWithOpener(&fakeTargets{targets: targets}, open, time.Millisecond, time.Millisecond)
}

// failingDiscoverer never finds any tab.
func failingDiscoverer() *Discoverer {
	open := func(ctx context.Context, t cdp.Target) (adapter.Channel, error) {
		return &nopChannel{}, nil
	}
	return NewDiscovererWithOpener(&fakeTargets{}, open, time.Millisecond, time.Millisecond)
}

// drainEvents consumes the orchestrator's event stream in the background
// and returns a getter for the events seen so far.
func drainEvents(events <-chan Event) func() []Event {
	var mu sync.Mutex
	var seen []Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			mu.Lock()
			seen = append(seen, ev)
			mu.Unlock()
		}
	}()
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Event, len(seen))
		copy(out, seen)
		return out
	}
}
