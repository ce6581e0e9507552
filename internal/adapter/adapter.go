// Package adapter implements the automation capability contract for each
// supported agent kind. The orchestrator only ever talks to the Adapter
// interface; everything site-specific (selectors, page scripts) lives in
// the concrete adapters here.
package adapter

import (
	"context"
	"encoding/json"

	"github.com/shayc/council/internal/cdp"
)

// Channel is a live communication channel to one agent's page.
// *cdp.Session satisfies it; tests substitute fakes.
type Channel interface {
	// Evaluate runs a script in the page and returns its value as raw JSON.
	Evaluate(ctx context.Context, expression string) (json.RawMessage, error)
	// EvaluateBool runs a script expected to yield a boolean.
	EvaluateBool(ctx context.Context, expression string) (bool, error)
	// EvaluateString runs a script expected to yield a string.
	EvaluateString(ctx context.Context, expression string) (string, error)
	// Close releases the channel.
	Close() error
}

// Compile-time verification that cdp sessions are usable channels.
var _ Channel = (*cdp.Session)(nil)

// Adapter is the capability contract the pipeline consumes for one agent
// kind. Implementations must keep every method cheap and side-effect free
// except SetText/Submit.
type Adapter interface {
	// EnsureBindings installs the adapter's page-side helpers. It may
	// no-op when already installed; callers treat errors as non-fatal and
	// retry on the next delivery attempt.
	EnsureBindings(ctx context.Context, ch Channel) error

	// LocateInputSurface reports whether the agent's input element is
	// present and usable.
	LocateInputSurface(ctx context.Context, ch Channel) (bool, error)

	// SetText places text into the input surface in a way the site's own
	// submission path observes.
	SetText(ctx context.Context, ch Channel, text string) error

	// Submit triggers submission and reports whether it was committed.
	Submit(ctx context.Context, ch Channel) (bool, error)

	// IsGenerationComplete reports whether the agent has finished
	// generating its latest response.
	IsGenerationComplete(ctx context.Context, ch Channel) (bool, error)

	// ReadLatestResponseText returns the latest response's text. While
	// generation is still in progress it must return "", never a
	// half-formed final text.
	ReadLatestResponseText(ctx context.Context, ch Channel) (string, error)
}
