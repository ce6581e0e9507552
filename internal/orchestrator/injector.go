package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shayc/council/internal/adapter"
)

// Injector delivers prompts to session handles with bounded retries.
// The inter-agent delay between council deliveries is the orchestrator's
// responsibility, not the injector's.
type Injector struct {
	adapters    *adapter.Registry
	maxAttempts int
	// backoff is the fixed delay between failed attempts.
	backoff time.Duration
	// initStep scales the pre-attempt initialization wait: attempt N
	// waits N*initStep before invoking the adapter.
	initStep time.Duration
}

// NewInjector creates an Injector.
func NewInjector(adapters *adapter.Registry, maxAttempts int, backoff, initStep time.Duration) *Injector {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Injector{
		adapters:    adapters,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		initStep:    initStep,
	}
}

// Deliver injects text into the handle's channel and confirms submission.
// On exhaustion it returns a *DeliveryError wrapping the last failure.
func (i *Injector) Deliver(ctx context.Context, h *SessionHandle, text string) error {
	if h.Channel == nil {
		return &DeliveryError{AgentID: h.Agent.ID, Reason: fmt.Errorf("no channel bound")}
	}

	ad, err := i.adapters.Get(h.Agent.ID)
	if err != nil {
		return &DeliveryError{AgentID: h.Agent.ID, Reason: err}
	}

	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		// Binding installation may no-op when already installed; a failure
		// here is not fatal to the attempt.
		if err := ad.EnsureBindings(ctx, h.Channel); err != nil {
			log.Printf("[injector] %s: bindings not ready on attempt %d: %v", h.Agent.ID, attempt, err)
		}

		if err := sleepCtx(ctx, time.Duration(attempt)*i.initStep); err != nil {
			return err
		}

		lastErr = i.attempt(ctx, ad, h, text)
		if lastErr == nil {
			return nil
		}
		log.Printf("[injector] %s: attempt %d/%d failed: %v", h.Agent.ID, attempt, i.maxAttempts, lastErr)

		if attempt < i.maxAttempts {
			if err := sleepCtx(ctx, i.backoff); err != nil {
				return err
			}
		}
	}

	return &DeliveryError{AgentID: h.Agent.ID, Attempts: i.maxAttempts, Reason: lastErr}
}

// attempt performs one locate/set/submit cycle.
func (i *Injector) attempt(ctx context.Context, ad adapter.Adapter, h *SessionHandle, text string) error {
	found, err := ad.LocateInputSurface(ctx, h.Channel)
	if err != nil {
		return fmt.Errorf("locating input surface: %w", err)
	}
	if !found {
		return fmt.Errorf("input surface absent")
	}

	if err := ad.SetText(ctx, h.Channel, text); err != nil {
		return fmt.Errorf("setting text: %w", err)
	}

	committed, err := ad.Submit(ctx, h.Channel)
	if err != nil {
		return fmt.Errorf("submitting: %w", err)
	}
	if !committed {
		return fmt.Errorf("submission not committed")
	}
	return nil
}
