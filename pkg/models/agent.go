package models

// AgentStatus represents the current state of a council or judge agent
// within a run.
type AgentStatus string

const (
	// StatusPending indicates the agent has not been bound to a channel yet.
	StatusPending AgentStatus = "pending"
	// StatusReady indicates a channel was discovered and the agent is ready
	// for prompt delivery.
	StatusReady AgentStatus = "ready"
	// StatusInjecting indicates a delivery attempt is in progress.
	StatusInjecting AgentStatus = "injecting"
	// StatusWaiting indicates the prompt was delivered and the agent is
	// generating a response.
	StatusWaiting AgentStatus = "waiting"
	// StatusComplete indicates a response was collected.
	StatusComplete AgentStatus = "complete"
	// StatusFailed indicates discovery or delivery was exhausted.
	StatusFailed AgentStatus = "failed"
	// StatusTimeout indicates the completion deadline elapsed.
	StatusTimeout AgentStatus = "timeout"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusInjecting, StatusWaiting,
		StatusComplete, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is final for the run.
// A terminal agent never transitions again until the next run.
func (s AgentStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}

// Role distinguishes the two ways an agent can participate in a run.
// The same agent may hold both roles at once, through two independent
// session handles.
type Role string

const (
	// RoleCouncil marks an agent asked the original prompt.
	RoleCouncil Role = "council"
	// RoleJudge marks the agent asked to score and rank council responses.
	RoleJudge Role = "judge"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	return r == RoleCouncil || r == RoleJudge
}

// Agent describes one supported conversational agent kind.
// Agents are immutable and defined at process start.
type Agent struct {
	// ID is the stable identifier used in flags, config, and the adapter
	// registry (e.g. "chatgpt").
	ID string `json:"id" yaml:"id"`
	// Name is the display name shown to the user and to the judge
	// (e.g. "ChatGPT").
	Name string `json:"name" yaml:"name"`
	// EntryURL is the canonical address of the agent's chat interface.
	EntryURL string `json:"entry_url" yaml:"entry_url"`
	// URLPatterns are substring patterns matched against open tab URLs
	// during channel discovery. When empty, discovery falls back to a
	// host comparison against EntryURL.
	URLPatterns []string `json:"url_patterns" yaml:"url_patterns"`
}
