// Package game runs the frog pond headless: it wires the world, the catalog,
// the population manager and telemetry together and drives turns.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/frogpond/catalog"
	"github.com/pthm-cable/frogpond/config"
	"github.com/pthm-cable/frogpond/population"
	"github.com/pthm-cable/frogpond/sim"
	"github.com/pthm-cable/frogpond/telemetry"
)

// perfWindow is the number of turns the perf collector averages over.
const perfWindow = 100

// bookmarkHistory is the number of generations the bookmark detector keeps.
const bookmarkHistory = 10

// Options configures a game instance.
type Options struct {
	Seed        int64  // 0 = world.seed from config, then time-based
	OutputDir   string // run output goes to OutputDir/RunID; empty disables output
	LogStats    bool   // log generation and perf stats via slog
	MetricsAddr string // serve /metrics on this address; empty disables the server
	RunID       string // empty = random UUID
	Logger      *slog.Logger
}

// Game holds the complete run state.
type Game struct {
	cfg    *config.Config
	runID  string
	seed   int64
	logger *slog.Logger

	world   *sim.World
	catalog *catalog.Catalog
	manager *population.Manager

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	hallOfFame    *telemetry.HallOfFame
	outputManager *telemetry.OutputManager
	metrics       *telemetry.Metrics
	metricsServer *http.Server
	logStats      bool

	// First error raised inside a turn-end notification.
	stepErr error
	closed  bool
}

// NewGame builds the world, seeds the population and starts evolution.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID)

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.World.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	world, err := sim.NewWorld(cfg, rng, logger)
	if err != nil {
		return nil, fmt.Errorf("building world: %w", err)
	}
	cat, err := catalog.Default(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	manager := population.NewManager(population.FromConfig(cfg.Population), world, cat, rng, logger)

	var outDir string
	if opts.OutputDir != "" {
		outDir = filepath.Join(opts.OutputDir, runID)
	}
	outputManager, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		return nil, err
	}
	if err := outputManager.WriteConfig(cfg); err != nil {
		outputManager.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	g := &Game{
		cfg:           cfg,
		runID:         runID,
		seed:          seed,
		logger:        logger,
		world:         world,
		catalog:       cat,
		manager:       manager,
		collector:     telemetry.NewCollector(),
		perfCollector: telemetry.NewPerfCollector(perfWindow),
		bookmarks:     telemetry.NewBookmarkDetector(bookmarkHistory),
		hallOfFame:    telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize, cat.Names()),
		outputManager: outputManager,
		metrics:       telemetry.NewMetrics(),
		logStats:      opts.LogStats || cfg.Telemetry.LogStats,
	}

	world.SetAgentController(manager)
	world.SetPhaseHook(g.perfCollector.StartPhase)
	world.OnAgentDeath(g.recordAgentDeath)
	world.OnAgentDeath(manager.HandleAgentDeath)
	world.OnPlayerDeath(g.recordPlayerDeath)
	world.OnTurnEnded(g.turnEnded)
	manager.Observe(g)

	if err := manager.Start(); err != nil {
		outputManager.Close()
		return nil, fmt.Errorf("starting population: %w", err)
	}

	if opts.MetricsAddr != "" {
		g.serveMetrics(opts.MetricsAddr)
	}

	logger.Info("game_created",
		"seed", seed,
		"width", cfg.World.Width,
		"height", cfg.World.Height,
		"agents", cfg.Population.Initial,
		"predicates", cat.NumPredicates(),
		"actions", cat.NumActions(),
		"output_dir", outputManager.Dir(),
	)
	return g, nil
}

// Step runs one turn. It returns the first error raised by a generation
// step; once an error is returned the game does not advance.
func (g *Game) Step() error {
	if g.stepErr != nil {
		return g.stepErr
	}
	if g.closed {
		return errors.New("game: step after close")
	}

	start := time.Now()
	g.perfCollector.StartTurn()
	g.world.Step()
	g.perfCollector.EndTurn()

	g.metrics.ObserveTurn(g.world.Turn(), time.Since(start))
	for _, c := range g.world.Census() {
		g.metrics.SetActive(c.Species, c.Active)
	}
	return g.stepErr
}

// Run steps until maxTurns turns have completed (0 = unlimited), a step
// fails or ctx is done.
func (g *Game) Run(ctx context.Context, maxTurns int) error {
	for maxTurns == 0 || g.world.Turn() < maxTurns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.Step(); err != nil {
			return err
		}
	}
	return nil
}

// turnEnded forwards the turn notification to the population manager.
func (g *Game) turnEnded(turn int) {
	g.perfCollector.StartPhase(telemetry.PhaseGeneration)
	if err := g.manager.HandleTurnEnded(); err != nil && g.stepErr == nil {
		g.stepErr = fmt.Errorf("turn %d: %w", turn, err)
		g.logger.Error("generation_failed", "turn", turn, "error", err)
	}
}

func (g *Game) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", g.metrics.Handler())
	g.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := g.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("metrics_server_failed", "addr", addr, "error", err)
		}
	}()
	g.logger.Info("metrics_server_started", "addr", addr)
}

// Close stops evolution, writes the hall of fame and closes run output.
func (g *Game) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.manager.Stop()

	var errs []error
	if err := g.outputManager.WriteHallOfFame(g.hallOfFame); err != nil {
		errs = append(errs, err)
	}
	if err := g.outputManager.Close(); err != nil {
		errs = append(errs, err)
	}
	if g.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	g.logger.Info("game_closed",
		"turns", g.world.Turn(),
		"generations", g.manager.Generations(),
		"hall_of_fame_top", g.hallOfFame.TopFitness(),
	)
	return errors.Join(errs...)
}

// Turn returns the number of completed turns.
func (g *Game) Turn() int { return g.world.Turn() }

// Generations returns the number of completed generation steps.
func (g *Game) Generations() int { return g.manager.Generations() }

// RunID returns the run identifier.
func (g *Game) RunID() string { return g.runID }

// Seed returns the seed the run was started with.
func (g *Game) Seed() int64 { return g.seed }

// OutputDir returns the run output directory, or "" when output is disabled.
func (g *Game) OutputDir() string { return g.outputManager.Dir() }

// World exposes the simulation world.
func (g *Game) World() *sim.World { return g.world }

// Manager exposes the population manager.
func (g *Game) Manager() *population.Manager { return g.manager }

// Catalog exposes the predicate/action catalog.
func (g *Game) Catalog() *catalog.Catalog { return g.catalog }

// HallOfFame exposes the best trees seen so far.
func (g *Game) HallOfFame() *telemetry.HallOfFame { return g.hallOfFame }

// Metrics exposes the run's Prometheus metrics.
func (g *Game) Metrics() *telemetry.Metrics { return g.metrics }
