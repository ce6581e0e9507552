package models

import "testing"

func TestAgentStatusValid(t *testing.T) {
	valid := []AgentStatus{
		StatusPending, StatusReady, StatusInjecting, StatusWaiting,
		StatusComplete, StatusFailed, StatusTimeout,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}

	invalid := []AgentStatus{"", "running", "done", "PENDING"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestAgentStatusTerminal(t *testing.T) {
	tests := []struct {
		status AgentStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusReady, false},
		{StatusInjecting, false},
		{StatusWaiting, false},
		{StatusComplete, true},
		{StatusFailed, true},
		{StatusTimeout, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleCouncil.Valid() || !RoleJudge.Valid() {
		t.Error("council and judge roles should be valid")
	}
	if Role("referee").Valid() {
		t.Error("unknown role should be invalid")
	}
}
