package main

import (
	"path/filepath"
	"testing"

	"github.com/shayc/council/internal/config"
	"github.com/shayc/council/internal/state"
)

func tempStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "council.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResolveSelectionDefaults(t *testing.T) {
	runCouncilIDs = nil
	runJudgeID = ""
	store := tempStore(t)

	council, judge, err := resolveSelection(store, config.BuiltinAgents())
	if err != nil {
		t.Fatalf("resolveSelection: %v", err)
	}
	if len(council) != 2 || council[0] != "chatgpt" || council[1] != "claude" {
		t.Errorf("council = %v", council)
	}
	if judge != "gemini" {
		t.Errorf("judge = %q", judge)
	}
}

func TestResolveSelectionRemembersLastUsed(t *testing.T) {
	runCouncilIDs = nil
	runJudgeID = ""
	store := tempStore(t)
	if err := store.SetLastCouncil([]string{"gemini", "grok"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetLastJudge("claude"); err != nil {
		t.Fatal(err)
	}

	council, judge, err := resolveSelection(store, config.BuiltinAgents())
	if err != nil {
		t.Fatalf("resolveSelection: %v", err)
	}
	if len(council) != 2 || council[0] != "gemini" || council[1] != "grok" {
		t.Errorf("council = %v", council)
	}
	if judge != "claude" {
		t.Errorf("judge = %q", judge)
	}
}

func TestResolveSelectionFlagsWinAndValidate(t *testing.T) {
	store := tempStore(t)

	runCouncilIDs = []string{"claude", "grok"}
	runJudgeID = "chatgpt"
	defer func() {
		runCouncilIDs = nil
		runJudgeID = ""
	}()

	council, judge, err := resolveSelection(store, config.BuiltinAgents())
	if err != nil {
		t.Fatalf("resolveSelection: %v", err)
	}
	if council[0] != "claude" || judge != "chatgpt" {
		t.Errorf("council = %v, judge = %q", council, judge)
	}

	runCouncilIDs = []string{"claude", "unknown-agent"}
	if _, _, err := resolveSelection(store, config.BuiltinAgents()); err == nil {
		t.Error("expected error for unknown council agent")
	}
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"browser.debug_url", "http://127.0.0.1:9333", false},
		{"timeouts.council", "90s", false},
		{"timeouts.council", "ninety seconds", true},
		{"delivery.max_attempts", "5", false},
		{"delivery.max_attempts", "many", true},
		{"nonsense.key", "x", true},
	}
	for _, tt := range tests {
		_, err := parseConfigValue(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseConfigValue(%q, %q) err = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
	}
}
