package models

import "time"

// ResultRecord tracks one council agent's progress and outcome within a run.
// Records are mutated only by the orchestrator; concurrent pollers report
// outcomes back over channels rather than writing here directly.
type ResultRecord struct {
	// AgentID is the identifier of the agent this record belongs to.
	AgentID string `json:"agent_id"`
	// Name is the agent's display name.
	Name string `json:"name"`
	// Status is the agent's current pipeline state.
	Status AgentStatus `json:"status"`
	// Response is the collected response text. Empty until complete.
	Response string `json:"response,omitempty"`
	// Err holds the failure reason for failed/timeout agents.
	Err string `json:"error,omitempty"`
}

// RunState is the complete state of one pipeline invocation.
// It is owned exclusively by the orchestrator and rebuilt from scratch on
// every submit.
type RunState struct {
	// ID is the short run identifier.
	ID string `json:"id"`
	// Prompt is the original user prompt.
	Prompt string `json:"prompt"`
	// CouncilIDs is the ordered list of council agent identifiers.
	// Delivery follows this order.
	CouncilIDs []string `json:"council_ids"`
	// JudgeID is the judge agent identifier.
	JudgeID string `json:"judge_id"`
	// Records maps council agent ID to its result record.
	Records map[string]*ResultRecord `json:"records"`
	// Verdict is the final result, nil until computed.
	Verdict *Verdict `json:"verdict,omitempty"`
	// StartedAt is when the run was submitted.
	StartedAt time.Time `json:"started_at"`
}

// NewRunState creates a RunState with pending records for each council agent.
func NewRunState(id, prompt string, council []Agent, judgeID string) *RunState {
	rs := &RunState{
		ID:         id,
		Prompt:     prompt,
		CouncilIDs: make([]string, 0, len(council)),
		JudgeID:    judgeID,
		Records:    make(map[string]*ResultRecord, len(council)),
		StartedAt:  time.Now(),
	}
	for _, a := range council {
		rs.CouncilIDs = append(rs.CouncilIDs, a.ID)
		rs.Records[a.ID] = &ResultRecord{
			AgentID: a.ID,
			Name:    a.Name,
			Status:  StatusPending,
		}
	}
	return rs
}

// Completed returns the records that finished with a response, in council
// delivery order.
func (rs *RunState) Completed() []*ResultRecord {
	out := make([]*ResultRecord, 0, len(rs.CouncilIDs))
	for _, id := range rs.CouncilIDs {
		if r := rs.Records[id]; r != nil && r.Status == StatusComplete && r.Response != "" {
			out = append(out, r)
		}
	}
	return out
}

// FailedNames returns display names of agents that ended failed or timed
// out, in council delivery order.
func (rs *RunState) FailedNames() []string {
	var out []string
	for _, id := range rs.CouncilIDs {
		if r := rs.Records[id]; r != nil && (r.Status == StatusFailed || r.Status == StatusTimeout) {
			out = append(out, r.Name)
		}
	}
	return out
}

// Settled returns true once every council record is terminal.
func (rs *RunState) Settled() bool {
	for _, id := range rs.CouncilIDs {
		if r := rs.Records[id]; r == nil || !r.Status.Terminal() {
			return false
		}
	}
	return true
}
