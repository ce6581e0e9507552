package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps agent identifiers to their adapters.
// The orchestrator is generic over the Adapter interface and never
// branches on agent kind; kind selection happens here, once, by ID.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// NewDefaultRegistry creates a Registry with the four built-in adapters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("chatgpt", NewChatGPT())
	r.Register("claude", NewClaude())
	r.Register("gemini", NewGemini())
	r.Register("grok", NewGrok())
	return r
}

// Register adds or replaces the adapter for an agent ID.
func (r *Registry) Register(agentID string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[agentID] = a
}

// Get returns the adapter for an agent ID.
func (r *Registry) Get(agentID string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[agentID]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for agent %q", agentID)
	}
	return a, nil
}

// IDs returns the registered agent IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
