package orchestrator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline stages.
var (
	// ErrDiscoveryFailed indicates no channel could be bound for an agent
	// after all discovery attempts. Non-fatal to the run.
	ErrDiscoveryFailed = errors.New("no channel discovered for agent")
	// ErrTimeout indicates a completion deadline elapsed.
	ErrTimeout = errors.New("completion deadline elapsed")
	// ErrAllCouncilFailed indicates zero council agents produced a
	// response. Fatal to the run; the judge step is skipped.
	ErrAllCouncilFailed = errors.New("no council agent produced a usable response")
	// ErrJudgeUnreachable indicates judge discovery or delivery failed.
	// The run still completes with a raw-fallback verdict.
	ErrJudgeUnreachable = errors.New("judge unreachable")
	// ErrJudgeTimeout indicates the judge deadline elapsed. Same fallback
	// behavior as ErrJudgeUnreachable.
	ErrJudgeTimeout = errors.New("judge timed out")
)

// DeliveryError indicates all injection attempts for one agent were
// exhausted.
type DeliveryError struct {
	// AgentID is the agent the delivery was for.
	AgentID string
	// Attempts is how many attempts were made.
	Attempts int
	// Reason is the last failure observed.
	Reason error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed after %d attempts: %v", e.AgentID, e.Attempts, e.Reason)
}

// Unwrap returns the last underlying failure.
func (e *DeliveryError) Unwrap() error {
	return e.Reason
}
