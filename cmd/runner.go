package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/cadenza-music/cadenza/internal/importer"
	"github.com/cadenza-music/cadenza/internal/repositories"
	"github.com/cadenza-music/cadenza/internal/shared"
	"github.com/cadenza-music/cadenza/internal/tracker"
	"github.com/cadenza-music/cadenza/internal/vfs"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, scanCommand, importCommand, statusCommand, untrackCommand,
		purgeCommand, relocateCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig replaces the runner's config from the given path when it exists.
func (r *Runner) reloadConfig(configPath string) {
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", configPath, "error", err)
		return
	}
	r.config = config
}

// openDatabase opens and configures the catalog database.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// buildEngine assembles the synchronization engine and its dependencies.
// The returned cleanup func closes the database.
func (r *Runner) buildEngine(ctx context.Context) (*tracker.Engine, func(), error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}

	collections := repositories.NewCollectionRepository(db)
	collection, err := collections.FindOrCreate(ctx, r.config.Library.Collection, r.config.Library.Root)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to resolve collection: %w", err)
	}

	resolver, err := vfs.NewFileURLResolver(collection.RootPath)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	engine := tracker.NewEngine(tracker.EngineOpts{
		Repository: repositories.NewCatalog(db),
		Importer:   importer.NewID3Importer(),
		Resolver:   resolver,
		Logger:     r.logger,
		Collection: collection.ID,
		ScanRate:   r.config.Library.ScanRate,
	})

	return engine, func() { db.Close() }, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
