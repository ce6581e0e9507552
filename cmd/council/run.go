package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shayc/council/internal/adapter"
	"github.com/shayc/council/internal/cdp"
	"github.com/shayc/council/internal/config"
	"github.com/shayc/council/internal/orchestrator"
	"github.com/shayc/council/internal/state"
	"github.com/shayc/council/pkg/models"
)

var (
	runCouncilIDs  []string
	runJudgeID     string
	runNoTUI       bool
	runIsolation   bool
	runReauthJudge bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one council round over a prompt",
	Long: `Send a prompt to the selected council agents, wait for their
answers, and have the judge agent score and rank them.

Council and judge selections persist between runs; --council and
--judge override and update the remembered selection.

Examples:
  council run "Explain the CAP theorem"
  council run --council chatgpt,claude,gemini --judge grok "Compare Rust and Go"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCouncil,
}

func init() {
	runCmd.Flags().StringSliceVar(&runCouncilIDs, "council", nil, "Council agent IDs, in delivery order (2-4)")
	runCmd.Flags().StringVar(&runJudgeID, "judge", "", "Judge agent ID")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "Print results to stdout instead of the TUI")
	runCmd.Flags().BoolVar(&runIsolation, "isolate-judge", false, "Give the judge its own tab even when it also sits on the council")
	runCmd.Flags().BoolVar(&runReauthJudge, "reauth-judge", false, "Rebind the judge's tab before the run")
}

func runCouncil(cmd *cobra.Command, args []string) (retErr error) {
	prompt := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	agents, err := config.LoadAgents()
	if err != nil {
		return err
	}

	store, err := state.OpenDefault()
	if err != nil {
		return fmt.Errorf("opening preference store: %w", err)
	}
	defer store.Close()

	councilIDs, judgeID, err := resolveSelection(store, agents)
	if err != nil {
		return err
	}

	isolation := runIsolation
	if !cmd.Flags().Changed("isolate-judge") {
		isolation, _ = store.JudgeIsolation()
	}

	client := cdp.NewClient(cfg.Browser.DebugURL)
	if !client.Reachable(cmd.Context()) {
		return fmt.Errorf("no browser at %s; start one with --remote-debugging-port", cfg.Browser.DebugURL)
	}

	registry := adapter.NewDefaultRegistry()
	orch := orchestrator.New(orchestrator.Config{
		Agents:          agents,
		Adapters:        registry,
		Discoverer:      orchestrator.NewDiscoverer(client, cfg.Timeouts.Settle, cfg.Timeouts.Rediscover),
		Injector:        orchestrator.NewInjector(registry, cfg.Delivery.MaxAttempts, cfg.Delivery.Backoff, cfg.Delivery.InitDelayStep),
		Poller:          orchestrator.NewPoller(registry, cfg.Timeouts.PollInterval),
		CouncilDeadline: cfg.Timeouts.Council,
		JudgeDeadline:   cfg.Timeouts.Judge,
		InterAgentDelay: cfg.Delivery.InterAgentDelay,
		JudgeIsolation:  isolation,
	})
	defer orch.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if runReauthJudge {
		if err := orch.ReauthenticateJudge(ctx, judgeID); err != nil {
			return err
		}
	}

	// Remember the selection for next time. Best effort; a failed write
	// never blocks the run.
	_ = store.SetLastCouncil(councilIDs)
	_ = store.SetLastJudge(judgeID)
	if cmd.Flags().Changed("isolate-judge") {
		_ = store.SetJudgeIsolation(isolation)
	}

	if runNoTUI {
		return runHeadless(ctx, orch, prompt, councilIDs, judgeID)
	}
	return runWithTUI(ctx, orch, prompt, councilIDs, judgeID)
}

// resolveSelection picks the council and judge from flags, falling back to
// the remembered selection, then to a built-in default.
func resolveSelection(store *state.Store, agents []models.Agent) ([]string, string, error) {
	councilIDs := runCouncilIDs
	if len(councilIDs) == 0 {
		councilIDs, _ = store.LastCouncil()
	}
	if len(councilIDs) == 0 {
		councilIDs = []string{"chatgpt", "claude"}
	}

	judgeID := runJudgeID
	if judgeID == "" {
		judgeID, _ = store.LastJudge()
	}
	if judgeID == "" {
		judgeID = "gemini"
	}

	for _, id := range councilIDs {
		if _, err := config.FindAgent(agents, id); err != nil {
			return nil, "", err
		}
	}
	if _, err := config.FindAgent(agents, judgeID); err != nil {
		return nil, "", err
	}
	return councilIDs, judgeID, nil
}

// runHeadless runs the round without a TUI and prints the verdict.
func runHeadless(ctx context.Context, orch *orchestrator.Orchestrator, prompt string, councilIDs []string, judgeID string) error {
	go logEvents(orch.Events())

	verdict, err := orch.Submit(ctx, prompt, councilIDs, judgeID)
	if err != nil {
		return err
	}
	printVerdict(verdict)
	return nil
}

// logEvents prints orchestrator progress to stderr in headless mode.
func logEvents(events <-chan orchestrator.Event) {
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventAgentStatus:
			fmt.Fprintf(os.Stderr, "  %s (%s): %s\n", ev.AgentName, ev.Role, ev.Status)
		case orchestrator.EventProgress, orchestrator.EventCouncilSettled, orchestrator.EventRunStarted:
			fmt.Fprintf(os.Stderr, "  %s\n", ev.Message)
		}
	}
}

// printVerdict renders the verdict for plain stdout consumption.
func printVerdict(v *models.Verdict) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)

	if !v.Parsed {
		faint.Println("(unstructured result)")
		fmt.Println(v.Raw)
		return
	}

	sorted := *v
	sorted.Scores = append([]models.ModelScore(nil), v.Scores...)
	sorted.SortScores()

	bold.Println("Scores")
	for _, s := range sorted.Scores {
		fmt.Printf("  %-10s %2d/50  (acc %d, dep %d, cla %d, rea %d, rel %d)\n",
			s.Name, s.Total, s.Accuracy, s.Depth, s.Clarity, s.Reasoning, s.Relevance)
		if s.Justification != "" {
			faint.Printf("    %s\n", s.Justification)
		}
	}

	if len(v.Ranking) > 0 {
		bold.Println("Ranking")
		for i, name := range v.Ranking {
			fmt.Printf("  %d. %s\n", i+1, name)
		}
	}
	if v.Winner != "" {
		green.Printf("Winner: %s\n", v.Winner)
	}
	if v.Summary != "" {
		fmt.Println()
		fmt.Println(v.Summary)
	}
}
