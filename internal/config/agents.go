package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shayc/council/pkg/models"
)

// BuiltinAgents returns the four supported agent definitions.
// An agents.yaml file in the user config directory can override or extend
// this set.
func BuiltinAgents() []models.Agent {
	return []models.Agent{
		{
			ID:          "chatgpt",
			Name:        "ChatGPT",
			EntryURL:    "https://chatgpt.com/",
			URLPatterns: []string{"chatgpt.com", "chat.openai.com"},
		},
		{
			ID:          "claude",
			Name:        "Claude",
			EntryURL:    "https://claude.ai/new",
			URLPatterns: []string{"claude.ai"},
		},
		{
			ID:          "gemini",
			Name:        "Gemini",
			EntryURL:    "https://gemini.google.com/app",
			URLPatterns: []string{"gemini.google.com"},
		},
		{
			ID:          "grok",
			Name:        "Grok",
			EntryURL:    "https://grok.com/",
			URLPatterns: []string{"grok.com", "x.com/i/grok"},
		},
	}
}

// agentsFile is the on-disk shape of agents.yaml.
type agentsFile struct {
	Agents []models.Agent `yaml:"agents"`
}

// AgentsFilePath returns the path of the optional agents override file.
func AgentsFilePath() string {
	return filepath.Join(getUserConfigDir(), "agents.yaml")
}

// LoadAgents returns the agent set: built-ins, overlaid with any entries
// from agents.yaml. An override entry with a known ID replaces the
// built-in; unknown IDs are appended.
func LoadAgents() ([]models.Agent, error) {
	return LoadAgentsFromPath(AgentsFilePath())
}

// LoadAgentsFromPath loads the agent set using the given override file.
// A missing file yields the built-ins unchanged.
func LoadAgentsFromPath(path string) ([]models.Agent, error) {
	agents := BuiltinAgents()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return agents, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, override := range file.Agents {
		if override.ID == "" {
			return nil, fmt.Errorf("agent entry in %s is missing an id", path)
		}
		replaced := false
		for i := range agents {
			if agents[i].ID == override.ID {
				agents[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			agents = append(agents, override)
		}
	}

	return agents, nil
}

// FindAgent returns the agent with the given ID from the set.
func FindAgent(agents []models.Agent, id string) (models.Agent, error) {
	for _, a := range agents {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Agent{}, fmt.Errorf("unknown agent %q", id)
}
