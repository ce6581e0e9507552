package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shayc/council/internal/cdp"
	"github.com/shayc/council/internal/config"
	"github.com/shayc/council/internal/orchestrator"
	"github.com/shayc/council/pkg/models"
)

var agentsWatch bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents and whether their tabs are open",
	Long: `List the configured agents and check which of them have a matching
tab open in the debugged browser.

Built-in agents can be overridden, and new ones added, via
agents.yaml in the council config directory. With --watch, the list
refreshes whenever that file changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := cdp.NewClient(cfg.Browser.DebugURL)

		show := func() error {
			agents, err := config.LoadAgents()
			if err != nil {
				return err
			}
			printAgents(cmd, client, agents)
			return nil
		}

		if err := show(); err != nil {
			return err
		}
		if !agentsWatch {
			return nil
		}

		stop, err := config.WatchAgents(func() {
			fmt.Println()
			if err := show(); err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			}
		})
		if err != nil {
			return fmt.Errorf("watching agents file: %w", err)
		}
		defer stop()

		fmt.Printf("\nwatching %s (ctrl+c to stop)\n", config.AgentsFilePath())
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()
		return nil
	},
}

func init() {
	agentsCmd.Flags().BoolVar(&agentsWatch, "watch", false, "Keep running and reprint when agents.yaml changes")
}

// printAgents prints one line per agent with its tab status.
func printAgents(cmd *cobra.Command, client *cdp.Client, agents []models.Agent) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	ctx := cmd.Context()
	if !client.Reachable(ctx) {
		yellow.Println("browser not reachable; tab status unknown")
		for _, a := range agents {
			fmt.Printf("  %-10s %s\n", a.ID, faint.Sprint(a.EntryURL))
		}
		return
	}

	targets, err := client.Targets(ctx)
	if err != nil {
		yellow.Printf("could not list tabs: %v\n", err)
		targets = nil
	}

	for _, a := range agents {
		tab := ""
		for _, t := range targets {
			if orchestrator.MatchesAgent(a, t.URL) {
				tab = t.URL
				break
			}
		}
		if tab != "" {
			fmt.Printf("  %s %-10s %s\n", green.Sprint("●"), a.ID, faint.Sprint(tab))
		} else {
			fmt.Printf("  %s %-10s %s\n", red.Sprint("○"), a.ID, faint.Sprintf("no tab (open %s)", a.EntryURL))
		}
	}
}
