package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shayc/council/internal/adapter"
	"github.com/shayc/council/pkg/models"
)

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// judgeOutputFor fabricates a well-formed judge response scoring the given
// names with descending totals.
func judgeOutputFor(names ...string) string {
	var b strings.Builder
	b.WriteString("## Evaluation Results\n\n")
	total := 45
	for _, n := range names {
		fmt.Fprintf(&b, "### %s\n| Accuracy | 9 / 10 |\n**Total: %d / 50**\n\n", n, total)
		total -= 5
	}
	b.WriteString("### Final Ranking\n")
	for i, n := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n)
	}
	fmt.Fprintf(&b, "\n### Winner: %s\n", names[0])
	return b.String()
}

type testEnv struct {
	agents   []models.Agent
	registry *adapter.Registry
	orch     *Orchestrator
	events   func() []Event
}

// newTestEnv builds an orchestrator over stub adapters with millisecond
// timings. Every agent discovers successfully unless discover is replaced.
func newTestEnv(t *testing.T, adapters map[string]*stubAdapter, opts ...func(*Config)) *testEnv {
	t.Helper()

	var agents []models.Agent
	registry := adapter.NewRegistry()
	for id, ad := range adapters {
		agents = append(agents, testAgent(id, titleCase(id), "https://"+id+".example", id+".example"))
		registry.Register(id, ad)
	}

	cfg := Config{
		Agents:          agents,
		Adapters:        registry,
		Discoverer:      fastDiscoverer(agents...),
		Injector:        NewInjector(registry, 3, time.Millisecond, time.Millisecond),
		Poller:          NewPoller(registry, time.Millisecond),
		CouncilDeadline: 200 * time.Millisecond,
		JudgeDeadline:   200 * time.Millisecond,
		InterAgentDelay: time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	orch := New(cfg)
	env := &testEnv{agents: agents, registry: registry, orch: orch}
	env.events = drainEvents(orch.Events())
	t.Cleanup(orch.Close)
	return env
}

func TestSubmitRejectsBadCouncilSize(t *testing.T) {
	env := newTestEnv(t, map[string]*stubAdapter{
		"a": {}, "b": {}, "c": {}, "d": {}, "e": {}, "judge": {},
	})

	tests := []struct {
		name    string
		council []string
	}{
		{"too few", []string{"a"}},
		{"too many", []string{"a", "b", "c", "d", "e"}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.orch.Submit(context.Background(), "q", tt.council, "judge"); err == nil {
				t.Error("expected synchronous rejection")
			}
		})
	}
}

func TestSubmitRejectsUnknownAgent(t *testing.T) {
	env := newTestEnv(t, map[string]*stubAdapter{"a": {}, "b": {}})
	if _, err := env.orch.Submit(context.Background(), "q", []string{"a", "nope"}, "b"); err == nil {
		t.Error("expected rejection for unknown council agent")
	}
	if _, err := env.orch.Submit(context.Background(), "q", []string{"a", "b"}, "nope"); err == nil {
		t.Error("expected rejection for unknown judge")
	}
}

func TestSubmitRejectsEmptyPrompt(t *testing.T) {
	env := newTestEnv(t, map[string]*stubAdapter{"a": {}, "b": {}, "judge": {}})
	if _, err := env.orch.Submit(context.Background(), "", []string{"a", "b"}, "judge"); err == nil {
		t.Error("expected rejection for empty prompt")
	}
}

func TestSubmitHappyPath(t *testing.T) {
	aDone, aRead := respondAfter(1, "answer from A")
	bDone, bRead := respondAfter(2, "answer from B")
	judge := &stubAdapter{read: func(ctx context.Context, ch adapter.Channel) (string, error) {
		return judgeOutputFor("A", "B"), nil
	}}
	env := newTestEnv(t, map[string]*stubAdapter{
		"a":     {complete: aDone, read: aRead},
		"b":     {complete: bDone, read: bRead},
		"judge": judge,
	})

	v, err := env.orch.Submit(context.Background(), "the question", []string{"a", "b"}, "judge")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !v.Parsed {
		t.Fatalf("verdict not parsed: %q", v.Raw)
	}
	if v.Winner != "A" {
		t.Errorf("winner = %q", v.Winner)
	}
	if len(v.Scores) != 2 {
		t.Errorf("scores = %v", v.Scores)
	}

	// The judge must have received the evaluation prompt carrying both
	// council answers, not the raw user prompt.
	sent := judge.deliveredTexts()
	if len(sent) != 1 {
		t.Fatalf("judge deliveries = %d", len(sent))
	}
	if !strings.Contains(sent[0], "answer from A") || !strings.Contains(sent[0], "answer from B") {
		t.Error("judge prompt missing council responses")
	}
	if !strings.Contains(sent[0], "the question") {
		t.Error("judge prompt missing original question")
	}

	rs := env.orch.RunState()
	if rs == nil || rs.Verdict != v {
		t.Error("run state does not carry the verdict")
	}
}

func TestSubmitPartialFailureStillJudges(t *testing.T) {
	okDone, okRead := respondAfter(1, "only good answer")
	judge := &stubAdapter{read: func(ctx context.Context, ch adapter.Channel) (string, error) {
		return judgeOutputFor("Ok"), nil
	}}
	env := newTestEnv(t, map[string]*stubAdapter{
		"ok":    {complete: okDone, read: okRead},
		"hang":  {complete: neverComplete},
		"judge": judge,
	})

	v, err := env.orch.Submit(context.Background(), "q", []string{"ok", "hang"}, "judge")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !v.Parsed {
		t.Fatalf("verdict not parsed: %q", v.Raw)
	}

	sent := judge.deliveredTexts()
	if len(sent) != 1 {
		t.Fatalf("judge deliveries = %d", len(sent))
	}
	if !strings.Contains(sent[0], "Hang did not respond") {
		t.Error("judge prompt missing the failed-agent disclaimer")
	}

	rs := env.orch.RunState()
	if got := rs.Records["hang"].Status; got != models.StatusTimeout {
		t.Errorf("hanging agent status = %s, want timeout", got)
	}
	if got := rs.Records["ok"].Status; got != models.StatusComplete {
		t.Errorf("ok agent status = %s, want complete", got)
	}
}

func TestSubmitAllCouncilFailedSkipsJudge(t *testing.T) {
	var judgeTouched atomic.Bool
	judge := &stubAdapter{
		locate: func(ctx context.Context, ch adapter.Channel) (bool, error) {
			judgeTouched.Store(true)
			return true, nil
		},
	}
	env := newTestEnv(t, map[string]*stubAdapter{
		"a":     {complete: neverComplete},
		"b":     {complete: neverComplete},
		"judge": judge,
	})

	_, err := env.orch.Submit(context.Background(), "q", []string{"a", "b"}, "judge")
	if !errors.Is(err, ErrAllCouncilFailed) {
		t.Fatalf("err = %v, want ErrAllCouncilFailed", err)
	}
	if judgeTouched.Load() {
		t.Error("judge was invoked despite an empty completed subset")
	}

	// Give the drain goroutine a beat to catch up.
	time.Sleep(10 * time.Millisecond)

	var failed bool
	for _, ev := range env.events() {
		if ev.Type == EventRunFailed {
			failed = true
		}
	}
	if !failed {
		t.Error("no run_failed event emitted")
	}
}

func TestSubmitJudgeFailureYieldsFallback(t *testing.T) {
	aDone, aRead := respondAfter(1, "alpha answer")
	bDone, bRead := respondAfter(1, "beta answer")
	judge := &stubAdapter{
		locate: func(ctx context.Context, ch adapter.Channel) (bool, error) {
			return false, nil
		},
	}
	env := newTestEnv(t, map[string]*stubAdapter{
		"alpha": {complete: aDone, read: aRead},
		"beta":  {complete: bDone, read: bRead},
		"judge": judge,
	})

	v, err := env.orch.Submit(context.Background(), "q", []string{"alpha", "beta"}, "judge")
	if err != nil {
		t.Fatalf("Submit must not fail when only the judge does: %v", err)
	}
	if v.Parsed {
		t.Error("fallback verdict must not claim Parsed")
	}
	want := "Alpha:\nalpha answer\n\n---\n\nBeta:\nbeta answer"
	if v.Raw != want {
		t.Errorf("fallback raw = %q, want %q", v.Raw, want)
	}
}

func TestSubmitEmitsLifecycleEvents(t *testing.T) {
	aDone, aRead := respondAfter(1, "x")
	bDone, bRead := respondAfter(1, "y")
	judge := &stubAdapter{read: func(ctx context.Context, ch adapter.Channel) (string, error) {
		return judgeOutputFor("A", "B"), nil
	}}
	env := newTestEnv(t, map[string]*stubAdapter{
		"a":     {complete: aDone, read: aRead},
		"b":     {complete: bDone, read: bRead},
		"judge": judge,
	})

	if _, err := env.orch.Submit(context.Background(), "q", []string{"a", "b"}, "judge"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Give the drain goroutine a beat to catch up.
	time.Sleep(10 * time.Millisecond)

	seen := map[EventType]bool{}
	for _, ev := range env.events() {
		seen[ev.Type] = true
	}
	for _, want := range []EventType{EventRunStarted, EventAgentStatus, EventCouncilSettled, EventVerdict} {
		if !seen[want] {
			t.Errorf("missing %s event", want)
		}
	}
}

func TestSubmitHonorsDeliveryOrder(t *testing.T) {
	var order []string
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	record := func(id string) func(ctx context.Context, ch adapter.Channel, text string) error {
		return func(ctx context.Context, ch adapter.Channel, text string) error {
			<-mu
			order = append(order, id)
			mu <- struct{}{}
			return nil
		}
	}

	done1, read1 := respondAfter(1, "1")
	done2, read2 := respondAfter(1, "2")
	done3, read3 := respondAfter(1, "3")
	judge := &stubAdapter{read: func(ctx context.Context, ch adapter.Channel) (string, error) {
		return judgeOutputFor("C", "A", "B"), nil
	}}
	env := newTestEnv(t, map[string]*stubAdapter{
		"a":     {setText: record("a"), complete: done1, read: read1},
		"b":     {setText: record("b"), complete: done2, read: read2},
		"c":     {setText: record("c"), complete: done3, read: read3},
		"judge": judge,
	})

	// Council listed c, a, b; delivery must follow that order.
	if _, err := env.orch.Submit(context.Background(), "q", []string{"c", "a", "b"}, "judge"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(order) != 3 || order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Errorf("delivery order = %v, want [c a b]", order)
	}
}

func TestSubmitReusesJudgeChannelWithoutIsolation(t *testing.T) {
	// The judge agent also sits on the council; with isolation off its
	// council channel carries the judge round too, so discovery happens
	// once per agent.
	aDone, aRead := respondAfter(1, "a answer")
	var judgeReads atomic.Int64
	dual := &stubAdapter{
		complete: func(ctx context.Context, ch adapter.Channel) (bool, error) { return true, nil },
		read: func(ctx context.Context, ch adapter.Channel) (string, error) {
			if judgeReads.Add(1) > 1 {
				return judgeOutputFor("Dual", "A"), nil
			}
			return "dual council answer", nil
		},
	}
	env := newTestEnv(t, map[string]*stubAdapter{
		"a":    {complete: aDone, read: aRead},
		"dual": dual,
	})

	v, err := env.orch.Submit(context.Background(), "q", []string{"dual", "a"}, "dual")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !v.Parsed {
		t.Fatalf("verdict not parsed: %q", v.Raw)
	}
	if v.Winner != "Dual" {
		t.Errorf("winner = %q", v.Winner)
	}
}

func TestSubmitCancellation(t *testing.T) {
	env := newTestEnv(t, map[string]*stubAdapter{
		"a":     {complete: neverComplete},
		"b":     {complete: neverComplete},
		"judge": {},
	}, func(cfg *Config) {
		cfg.CouncilDeadline = time.Minute
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := env.orch.Submit(ctx, "q", []string{"a", "b"}, "judge")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReauthenticateJudge(t *testing.T) {
	env := newTestEnv(t, map[string]*stubAdapter{"a": {}, "b": {}, "judge": {}})

	if err := env.orch.ReauthenticateJudge(context.Background(), "judge"); err != nil {
		t.Fatalf("ReauthenticateJudge: %v", err)
	}
	if err := env.orch.ReauthenticateJudge(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown judge")
	}
}
