// Package orchestrator runs the council pipeline: it binds agents to live
// browser channels, broadcasts the prompt to the council, collects the
// responses under partial failure, and runs the judge round over whatever
// actually arrived.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shayc/council/internal/adapter"
	"github.com/shayc/council/pkg/models"
)

// Council size bounds enforced at submission.
const (
	MinCouncilSize = 2
	MaxCouncilSize = 4
)

// Config contains configuration options for the Orchestrator.
type Config struct {
	// Agents is the full agent definition set.
	Agents []models.Agent
	// Adapters maps agent IDs to automation adapters.
	Adapters *adapter.Registry
	// Discoverer binds agents to browser tabs.
	Discoverer *Discoverer
	// Injector delivers prompts.
	Injector *Injector
	// Poller collects responses.
	Poller *Poller
	// CouncilDeadline is the shared deadline for all council responses.
	CouncilDeadline time.Duration
	// JudgeDeadline is the deadline for the judge's response.
	JudgeDeadline time.Duration
	// InterAgentDelay is enforced between successive council deliveries.
	InterAgentDelay time.Duration
	// JudgeIsolation forces the judge onto its own channel even when the
	// same agent also sits on the council.
	JudgeIsolation bool
	// EventBuffer is the emitter buffer size. Defaults to 100.
	EventBuffer int
}

// Orchestrator coordinates one run at a time.
// It exclusively owns the run state and all session handles; concurrent
// pollers report outcomes over channels and never mutate state directly.
type Orchestrator struct {
	cfg     Config
	emitter *EventEmitter

	// mu guards run and sessions.
	mu       sync.Mutex
	run      *models.RunState
	sessions map[string]*SessionHandle
	// judgeNext holds a pre-authenticated judge handle produced by
	// ReauthenticateJudge, consumed by the next run.
	judgeNext *SessionHandle
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 100
	}
	return &Orchestrator{
		cfg:      cfg,
		emitter:  NewEventEmitter(cfg.EventBuffer),
		sessions: make(map[string]*SessionHandle),
	}
}

// Events returns the stream of run events for the UI/caller.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// RunState returns the current run state, or nil before the first submit.
func (o *Orchestrator) RunState() *models.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run
}

// Close tears down all session handles and the event stream.
func (o *Orchestrator) Close() {
	o.closeSessions()
	o.emitter.Close()
}

// ReauthenticateJudge discards any judge channel and binds a fresh one,
// independent of any council handles. The next run uses the new handle.
// Used when the judge's underlying identity or session changed.
func (o *Orchestrator) ReauthenticateJudge(ctx context.Context, judgeID string) error {
	agent, err := o.findAgent(judgeID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if o.judgeNext != nil {
		o.judgeNext.Close()
		o.judgeNext = nil
	}
	o.mu.Unlock()

	h := &SessionHandle{Agent: agent, Role: models.RoleJudge}
	if err := o.cfg.Discoverer.Discover(ctx, h); err != nil {
		return fmt.Errorf("%w: %v", ErrJudgeUnreachable, err)
	}

	o.mu.Lock()
	o.judgeNext = h
	o.mu.Unlock()
	log.Printf("[orchestrator] judge %s reauthenticated", judgeID)
	return nil
}

// Submit runs the full pipeline for one prompt and returns the verdict.
// It rejects synchronously on invalid input; per-agent failures are
// absorbed into the run, and only a fully failed council is an error.
// Progress streams over Events while Submit blocks.
func (o *Orchestrator) Submit(ctx context.Context, prompt string, councilIDs []string, judgeID string) (*models.Verdict, error) {
	if len(councilIDs) < MinCouncilSize || len(councilIDs) > MaxCouncilSize {
		return nil, fmt.Errorf("council must have between %d and %d agents, got %d",
			MinCouncilSize, MaxCouncilSize, len(councilIDs))
	}
	if prompt == "" {
		return nil, fmt.Errorf("prompt is empty")
	}

	council := make([]models.Agent, 0, len(councilIDs))
	for _, id := range councilIDs {
		agent, err := o.findAgent(id)
		if err != nil {
			return nil, err
		}
		if _, err := o.cfg.Adapters.Get(id); err != nil {
			return nil, err
		}
		council = append(council, agent)
	}
	judgeAgent, err := o.findAgent(judgeID)
	if err != nil {
		return nil, err
	}
	if _, err := o.cfg.Adapters.Get(judgeID); err != nil {
		return nil, err
	}

	// Fresh run state and fresh council handles; nothing stale survives
	// a previous run.
	runID := uuid.New().String()[:8]
	o.mu.Lock()
	o.closeSessionsLocked()
	o.run = models.NewRunState(runID, prompt, council, judgeID)
	handles := make([]*SessionHandle, 0, len(council))
	for _, agent := range council {
		h := &SessionHandle{Agent: agent, Role: models.RoleCouncil}
		o.sessions[h.Key()] = h
		handles = append(handles, h)
	}
	o.mu.Unlock()
	defer o.closeSessions()

	o.emit(Event{Type: EventRunStarted, RunID: runID,
		Message: fmt.Sprintf("council of %d, judged by %s", len(council), judgeAgent.Name)})

	if err := o.councilRound(ctx, runID, handles, prompt); err != nil {
		o.emit(Event{Type: EventRunFailed, RunID: runID, Err: err})
		return nil, err
	}

	o.mu.Lock()
	completed := o.run.Completed()
	records := make([]*models.ResultRecord, 0, len(o.run.CouncilIDs))
	for _, id := range o.run.CouncilIDs {
		records = append(records, o.run.Records[id])
	}
	o.mu.Unlock()

	o.emit(Event{Type: EventCouncilSettled, RunID: runID,
		Message: fmt.Sprintf("%d of %d council agents responded", len(completed), len(council))})

	if len(completed) == 0 {
		o.emit(Event{Type: EventRunFailed, RunID: runID, Err: ErrAllCouncilFailed})
		return nil, ErrAllCouncilFailed
	}

	built := BuildEvaluationPrompt(prompt, records)
	verdict := o.judgeRound(ctx, runID, judgeAgent, built, completed)
	if err := ctx.Err(); err != nil {
		o.emit(Event{Type: EventRunFailed, RunID: runID, Err: err})
		return nil, err
	}

	o.mu.Lock()
	o.run.Verdict = verdict
	o.mu.Unlock()

	o.emit(Event{Type: EventVerdict, RunID: runID, Verdict: verdict})
	return verdict, nil
}

// councilRound discovers, delivers to, and polls the council agents.
// Individual failures are recorded and absorbed; only caller cancellation
// is returned as an error.
func (o *Orchestrator) councilRound(ctx context.Context, runID string, handles []*SessionHandle, prompt string) error {
	// Discovery, in list order. Parallel discovery invites channel
	// misattribution when two tabs hydrate at once.
	ready := make([]*SessionHandle, 0, len(handles))
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.cfg.Discoverer.Discover(ctx, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.setStatus(runID, h, models.StatusFailed, err)
			continue
		}
		o.setStatus(runID, h, models.StatusReady, nil)
		ready = append(ready, h)
	}

	// Ordered delivery with the inter-agent delay.
	waiting := make([]*SessionHandle, 0, len(ready))
	for i, h := range ready {
		if i > 0 {
			if err := sleepCtx(ctx, o.cfg.InterAgentDelay); err != nil {
				return err
			}
		}
		o.setStatus(runID, h, models.StatusInjecting, nil)
		if err := o.cfg.Injector.Deliver(ctx, h, prompt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.setStatus(runID, h, models.StatusFailed, err)
			continue
		}
		o.setStatus(runID, h, models.StatusWaiting, nil)
		waiting = append(waiting, h)
	}

	if len(waiting) == 0 {
		return nil
	}

	// Concurrent polling against the shared council deadline, outcomes
	// streamed back first-completed-first-reported.
	byID := make(map[string]*SessionHandle, len(waiting))
	for _, h := range waiting {
		byID[h.Agent.ID] = h
	}

	responded := 0
	for update := range o.cfg.Poller.AwaitCouncil(ctx, waiting, o.cfg.CouncilDeadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h := byID[update.AgentID]
		if update.Err != nil {
			o.setStatus(runID, h, models.StatusTimeout, update.Err)
			continue
		}
		o.setResponse(h, update.Text)
		o.setStatus(runID, h, models.StatusComplete, nil)
		responded++
		o.emit(Event{Type: EventProgress, RunID: runID,
			Message: fmt.Sprintf("%d responded, %d remaining", responded, len(waiting)-responded)})
	}
	return ctx.Err()
}

// judgeRound runs the judge as a council of one. Any judge failure yields
// the raw-fallback verdict rather than an error: the run still reports
// whatever the council produced.
func (o *Orchestrator) judgeRound(ctx context.Context, runID string, agent models.Agent, built BuiltPrompt, completed []*models.ResultRecord) *models.Verdict {
	h := o.takeJudgeHandle(agent)
	o.mu.Lock()
	o.sessions[h.Key()] = h
	o.mu.Unlock()

	emitJudge := func(status models.AgentStatus, err error) {
		ev := Event{Type: EventAgentStatus, RunID: runID, AgentID: agent.ID,
			AgentName: agent.Name, Role: models.RoleJudge, Status: status, Err: err}
		o.emit(ev)
	}

	if h.Channel == nil {
		if err := o.cfg.Discoverer.Discover(ctx, h); err != nil {
			log.Printf("[orchestrator] %v, falling back to raw results", ErrJudgeUnreachable)
			emitJudge(models.StatusFailed, err)
			return FallbackVerdict(completed)
		}
	}
	emitJudge(models.StatusReady, nil)

	emitJudge(models.StatusInjecting, nil)
	if err := o.cfg.Injector.Deliver(ctx, h, built.Text); err != nil {
		log.Printf("[orchestrator] judge delivery failed (%v), falling back to raw results", err)
		emitJudge(models.StatusFailed, err)
		return FallbackVerdict(completed)
	}
	emitJudge(models.StatusWaiting, nil)

	text, err := o.cfg.Poller.AwaitCompletion(ctx, h, o.cfg.JudgeDeadline)
	if err != nil {
		log.Printf("[orchestrator] %v (%v), falling back to raw results", ErrJudgeTimeout, err)
		emitJudge(models.StatusTimeout, err)
		return FallbackVerdict(completed)
	}
	emitJudge(models.StatusComplete, nil)

	names := make([]string, 0, len(completed))
	for _, r := range completed {
		names = append(names, r.Name)
	}
	return ParseVerdict(text, names)
}

// takeJudgeHandle returns the handle the judge round should use: a
// pre-authenticated handle if one is waiting, the judge agent's council
// channel when isolation is off and the agent sits on the council, or a
// fresh unbound handle.
func (o *Orchestrator) takeJudgeHandle(agent models.Agent) *SessionHandle {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.judgeNext != nil && o.judgeNext.Agent.ID == agent.ID {
		h := o.judgeNext
		o.judgeNext = nil
		return h
	}

	h := &SessionHandle{Agent: agent, Role: models.RoleJudge}
	if !o.cfg.JudgeIsolation {
		councilKey := agent.ID + "/" + string(models.RoleCouncil)
		if c, ok := o.sessions[councilKey]; ok && c.Channel != nil && !c.Failed {
			h.Channel = c.Channel
		}
	}
	return h
}

// setStatus records an agent's transition and emits the status event.
func (o *Orchestrator) setStatus(runID string, h *SessionHandle, status models.AgentStatus, cause error) {
	o.mu.Lock()
	if rec, ok := o.run.Records[h.Agent.ID]; ok && h.Role == models.RoleCouncil {
		if rec.Status.Terminal() {
			// Terminal states never regress.
			o.mu.Unlock()
			return
		}
		rec.Status = status
		if cause != nil {
			rec.Err = cause.Error()
		}
	}
	if status == models.StatusFailed {
		h.Failed = true
	}
	o.mu.Unlock()

	o.emit(Event{Type: EventAgentStatus, RunID: runID, AgentID: h.Agent.ID,
		AgentName: h.Agent.Name, Role: h.Role, Status: status, Err: cause})
}

// setResponse records an agent's collected response text.
func (o *Orchestrator) setResponse(h *SessionHandle, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec, ok := o.run.Records[h.Agent.ID]; ok {
		rec.Response = text
	}
}

// findAgent resolves an agent ID against the configured set.
func (o *Orchestrator) findAgent(id string) (models.Agent, error) {
	for _, a := range o.cfg.Agents {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Agent{}, fmt.Errorf("unknown agent %q", id)
}

// emit forwards an event with its timestamp set.
func (o *Orchestrator) emit(ev Event) {
	ev.Timestamp = time.Now()
	o.emitter.Emit(ev)
}

// closeSessions tears down every live session handle.
func (o *Orchestrator) closeSessions() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeSessionsLocked()
}

func (o *Orchestrator) closeSessionsLocked() {
	for key, h := range o.sessions {
		h.Close()
		delete(o.sessions, key)
	}
}
