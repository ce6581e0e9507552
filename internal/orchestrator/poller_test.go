package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shayc/council/internal/adapter"
)

func TestAwaitCompletionAfterPolls(t *testing.T) {
	complete, read := respondAfter(3, "final answer")
	ad := &stubAdapter{complete: complete, read: read}
	reg := adapter.NewRegistry()
	reg.Register("chatgpt", ad)

	p := NewPoller(reg, time.Millisecond)
	h := councilHandle(testAgent("chatgpt", "ChatGPT", "https://chatgpt.com"))

	text, err := p.AwaitCompletion(context.Background(), h, time.Second)
	if err != nil {
		t.Fatalf("AwaitCompletion: %v", err)
	}
	if text != "final answer" {
		t.Errorf("text = %q", text)
	}
}

func TestAwaitCompletionTimeout(t *testing.T) {
	ad := &stubAdapter{complete: neverComplete}
	reg := adapter.NewRegistry()
	reg.Register("claude", ad)

	p := NewPoller(reg, time.Millisecond)
	h := councilHandle(testAgent("claude", "Claude", "https://claude.ai"))

	_, err := p.AwaitCompletion(context.Background(), h, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestAwaitCompletionParentCancellation(t *testing.T) {
	ad := &stubAdapter{complete: neverComplete}
	reg := adapter.NewRegistry()
	reg.Register("claude", ad)

	p := NewPoller(reg, time.Millisecond)
	h := councilHandle(testAgent("claude", "Claude", "https://claude.ai"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.AwaitCompletion(ctx, h, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled, not ErrTimeout", err)
	}
}

func TestPollEmptyTextIsNotComplete(t *testing.T) {
	ad := &stubAdapter{
		read: func(ctx context.Context, ch adapter.Channel) (string, error) {
			return "", nil
		},
	}
	reg := adapter.NewRegistry()
	reg.Register("gemini", ad)

	p := NewPoller(reg, time.Millisecond)
	h := councilHandle(testAgent("gemini", "Gemini", "https://gemini.google.com"))

	if done, _ := p.Poll(context.Background(), h); done {
		t.Error("complete with empty text must read as still pending")
	}
}

func TestPollErrorsAreRetryable(t *testing.T) {
	ad := &stubAdapter{
		complete: func(ctx context.Context, ch adapter.Channel) (bool, error) {
			return false, errors.New("page navigating")
		},
	}
	reg := adapter.NewRegistry()
	reg.Register("grok", ad)

	p := NewPoller(reg, time.Millisecond)
	h := councilHandle(testAgent("grok", "Grok", "https://grok.com"))

	done, text := p.Poll(context.Background(), h)
	if done || text != "" {
		t.Error("poll errors must report not-complete, never fail")
	}
}

func TestAwaitCouncilPartialCompletion(t *testing.T) {
	fastDone, fastRead := respondAfter(1, "fast answer")
	reg := adapter.NewRegistry()
	reg.Register("fast", &stubAdapter{complete: fastDone, read: fastRead})
	reg.Register("slow", &stubAdapter{complete: neverComplete})

	p := NewPoller(reg, time.Millisecond)
	handles := []*SessionHandle{
		councilHandle(testAgent("fast", "Fast", "https://fast.example")),
		councilHandle(testAgent("slow", "Slow", "https://slow.example")),
	}

	byAgent := map[string]CouncilUpdate{}
	for u := range p.AwaitCouncil(context.Background(), handles, 50*time.Millisecond) {
		byAgent[u.AgentID] = u
	}

	if len(byAgent) != 2 {
		t.Fatalf("got %d updates, want one per handle", len(byAgent))
	}
	if fast := byAgent["fast"]; fast.Err != nil || fast.Text != "fast answer" {
		t.Errorf("fast update = %+v", fast)
	}
	if slow := byAgent["slow"]; !errors.Is(slow.Err, ErrTimeout) {
		t.Errorf("slow update err = %v, want ErrTimeout", slow.Err)
	}
}

func TestAwaitCouncilSharedDeadline(t *testing.T) {
	// Both agents hang; both must time out around the same shared
	// deadline rather than serially.
	reg := adapter.NewRegistry()
	reg.Register("a", &stubAdapter{complete: neverComplete})
	reg.Register("b", &stubAdapter{complete: neverComplete})

	p := NewPoller(reg, time.Millisecond)
	handles := []*SessionHandle{
		councilHandle(testAgent("a", "A", "https://a.example")),
		councilHandle(testAgent("b", "B", "https://b.example")),
	}

	start := time.Now()
	n := 0
	for range p.AwaitCouncil(context.Background(), handles, 30*time.Millisecond) {
		n++
	}
	elapsed := time.Since(start)

	if n != 2 {
		t.Fatalf("got %d updates", n)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("deadline not shared: took %v", elapsed)
	}
}
