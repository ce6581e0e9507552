package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shayc/council/internal/orchestrator"
	"github.com/shayc/council/internal/tui"
)

// runWithTUI runs the round behind the interactive TUI.
func runWithTUI(ctx context.Context, orch *orchestrator.Orchestrator, prompt string, councilIDs []string, judgeID string) (retErr error) {
	// Suppress log output while TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	program, _ := tui.NewProgram(prompt)

	go forwardEventsToTUI(program, orch.Events())

	runDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				runDone <- fmt.Errorf("PANIC in orchestrator: %v", r)
			}
		}()
		verdict, err := orch.Submit(ctx, prompt, councilIDs, judgeID)
		program.Send(tui.RunDoneMsg{Verdict: verdict, Err: err})
		runDone <- err
	}()

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("PANIC in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case err := <-runDone:
		// Leave the TUI up so the user can read the verdict; they quit
		// with q.
		<-tuiDone
		return err
	case err := <-tuiDone:
		return err
	}
}

// forwardEventsToTUI converts orchestrator events to TUI messages.
func forwardEventsToTUI(program *tea.Program, events <-chan orchestrator.Event) {
	for event := range events {
		program.Send(tui.EventMsg{Event: event})
	}
}
