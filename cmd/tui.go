package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/cadenza-music/cadenza/internal/shared"
	"github.com/cadenza-music/cadenza/internal/tracker"
	"github.com/cadenza-music/cadenza/internal/ui"
)

// TUI launches the interactive terminal UI for library synchronization.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	mode, err := tracker.ParseSyncMode(cmd.String("mode"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/cadenza-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	model := ui.NewModel(ctx, engine, mode)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
