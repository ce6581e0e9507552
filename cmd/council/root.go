package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "council",
	Short: "Broadcast a prompt to a council of browser AI agents and judge the answers",
	Long: `Council drives the AI assistants already open in your browser.

It attaches to a Chromium browser started with remote debugging
(e.g. chromium --remote-debugging-port=9222), finds the tabs where
ChatGPT, Claude, Gemini, or Grok are signed in, sends one prompt to a
council of them in parallel, then hands the collected answers to a
judge agent that scores and ranks them.

No API keys are used; the existing browser sessions do the work.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
