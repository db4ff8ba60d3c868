package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/cadenza-music/cadenza/internal/formatter"
	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/tracker"
)

// Scan walks the library root and records directory changes.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	maxDepth := cmd.Int("max-depth")
	if maxDepth == 0 {
		maxDepth = r.config.Library.MaxDepth
	}

	outcome, err := engine.Scan(ctx, cmd.StringArg("root"), tracker.ScanOptions{
		MaxDepth: maxDepth,
		Workers:  r.config.Library.ScanWorkers,
	}, nil)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcome, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.ScanToText(outcome))
}

// Import extracts metadata from files in pending directories.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	mode, err := tracker.ParseSyncMode(cmd.String("mode"))
	if err != nil {
		return err
	}

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := engine.Import(ctx, cmd.StringArg("root"), tracker.ImportOptions{
		Mode:   mode,
		Config: importer.Config{ParseArtwork: cmd.Bool("artwork")},
	}, nil)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcome, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.ImportToText(outcome))
}

// Status summarizes tracked directories under a root.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	root := cmd.StringArg("root")
	counts, err := engine.Status(ctx, root)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"root":        root,
			"directories": counts,
			"total":       counts.Total(),
		}, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.StatusToText(root, counts))
}

// Untrack drops directory tracking records under a root.
func (r *Runner) Untrack(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	var filter []tracker.DirTrackingStatus
	for _, value := range cmd.StringSlice("status") {
		status, err := tracker.ParseDirTrackingStatus(value)
		if err != nil {
			return err
		}
		filter = append(filter, status)
	}

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := engine.Untrack(ctx, cmd.StringArg("root"), filter, nil)
	if err != nil {
		return fmt.Errorf("untrack failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcome, true)
	}
	return r.writePlain("Untracked %d directories\n", outcome.Untracked)
}

// PurgeOrphaned removes sources whose directories vanished from disk.
func (r *Runner) PurgeOrphaned(ctx context.Context, cmd *cli.Command) error {
	return r.purge(ctx, cmd, func(engine *tracker.Engine, root string) (*tracker.PurgeOutcome, error) {
		return engine.PurgeOrphaned(ctx, root, nil)
	})
}

// PurgeUntracked removes sources whose directories are no longer tracked.
func (r *Runner) PurgeUntracked(ctx context.Context, cmd *cli.Command) error {
	return r.purge(ctx, cmd, func(engine *tracker.Engine, root string) (*tracker.PurgeOutcome, error) {
		return engine.PurgeUntracked(ctx, root, nil)
	})
}

func (r *Runner) purge(ctx context.Context, cmd *cli.Command, fn func(engine *tracker.Engine, root string) (*tracker.PurgeOutcome, error)) error {
	r.reloadConfig(cmd.String("config"))

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := fn(engine, cmd.StringArg("root"))
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcome, true)
	}
	return r.writePlain("Purged %d media sources\n", outcome.Purged)
}

// Relocate moves tracking and source records to a new path prefix.
func (r *Runner) Relocate(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	engine, cleanup, err := r.buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	moved, err := engine.Relocate(ctx, cmd.StringArg("from"), cmd.StringArg("to"), nil)
	if err != nil {
		return fmt.Errorf("relocate failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]int{"relocated": moved}, true)
	}
	return r.writePlain("Relocated %d records\n", moved)
}
