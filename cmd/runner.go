package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tunebridge/tunebridge/internal/catalog"
	"github.com/tunebridge/tunebridge/internal/connections"
	"github.com/tunebridge/tunebridge/internal/jobs"
	"github.com/tunebridge/tunebridge/internal/matching"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, convertCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// engine bundles the assembled core components for one command invocation.
type engine struct {
	db           *sql.DB
	config       *shared.Config
	registry     *providers.Registry
	manager      *connections.Manager
	catalog      *catalog.Cache
	orchestrator *jobs.Orchestrator
}

func (e *engine) Close() error {
	return e.db.Close()
}

// loadConfig loads configuration from the command's --config flag, falling
// back to defaults when the file is absent.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err != nil {
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// openEngine assembles the full conversion stack over the configured database.
func (r *Runner) openEngine(config *shared.Config) (*engine, error) {
	spotify, err := providers.NewSpotifyProvider(config.Credentials.Spotify)
	if err != nil {
		return nil, err
	}
	youtube, err := providers.NewYouTubeProvider(config.Credentials.YouTube)
	if err != nil {
		return nil, err
	}
	registry := providers.NewRegistry(spotify, youtube)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	manager := connections.NewManager(repositories.NewConnectionRepository(db), registry, r.logger)
	cat := catalog.NewCache(repositories.NewPlaylistRepository(db), manager, registry, config.Conversion.CacheTTL(), r.logger)
	matcher := matching.NewMatcher(config.Conversion.MatchThreshold, config.Conversion.SearchLimit)
	orchestrator := jobs.NewOrchestrator(repositories.NewJobRepository(db), manager, cat, registry, matcher, config.Conversion, r.logger)

	return &engine{
		db:           db,
		config:       config,
		registry:     registry,
		manager:      manager,
		catalog:      cat,
		orchestrator: orchestrator,
	}, nil
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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
