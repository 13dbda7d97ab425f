package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/frogpond/catalog"
	"github.com/pthm-cable/frogpond/config"
	"github.com/pthm-cable/frogpond/dtree"
	"github.com/pthm-cable/frogpond/game"
	"github.com/pthm-cable/frogpond/telemetry"
)

var (
	configPath  string
	seed        int64
	maxTurns    int
	outputDir   string
	logStats    bool
	metricsAddr string
	runID       string
	treeFrom    string

	rootCmd = &cobra.Command{
		Use:   "frogpond",
		Short: "Evolve decision-tree monsters against a hunting player",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Set up slog (JSON to stdout for structured logging)
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
			return config.Init(configPath)
		},
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the headless simulation",
		RunE:  runSimulation,
	}

	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "List the predicates and actions trees are built from",
		RunE:  listCatalog,
	}

	treeCmd = &cobra.Command{
		Use:   "tree",
		Short: "Print a random tree, or the trees in a hall of fame file",
		RunE:  printTree,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (empty = use defaults)")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 = world.seed from config, then time-based)")
	runCmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Stop after N turns (0 = until interrupted)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory for CSV logs, config and hall of fame")
	runCmd.Flags().BoolVar(&logStats, "log-stats", false, "Output generation stats via slog")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (empty = random UUID)")

	rootCmd.AddCommand(catalogCmd)

	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for the random tree (0 = time-based)")
	treeCmd.Flags().StringVar(&treeFrom, "from", "", "Print the trees stored in this hall_of_fame.json instead")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := game.NewGame(config.Cfg(), game.Options{
		Seed:        seed,
		OutputDir:   outputDir,
		LogStats:    logStats,
		MetricsAddr: metricsAddr,
		RunID:       runID,
	})
	if err != nil {
		return err
	}

	slog.Info("starting simulation",
		"run_id", g.RunID(),
		"seed", g.Seed(),
		"max_turns", maxTurns,
	)

	start := time.Now()
	runErr := g.Run(ctx, maxTurns)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	closeErr := g.Close()

	elapsed := time.Since(start)
	slog.Info("simulation finished",
		"run_id", g.RunID(),
		"turns", g.Turn(),
		"generations", g.Generations(),
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"turns_per_sec", float64(g.Turn())/elapsed.Seconds(),
	)
	return errors.Join(runErr, closeErr)
}

func listCatalog(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Default(config.Cfg().Catalog)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "predicates:")
	for i, name := range cat.PredicateNames() {
		fmt.Fprintf(out, "  %3d  %s\n", i, name)
	}
	fmt.Fprintln(out, "actions:")
	for i, name := range cat.ActionNames() {
		fmt.Fprintf(out, "  %3d  %s\n", i, name)
	}
	return nil
}

func printTree(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Default(config.Cfg().Catalog)
	if err != nil {
		return err
	}
	names := cat.Names()
	out := cmd.OutOrStdout()

	if treeFrom != "" {
		hof, err := telemetry.LoadHallOfFameFromFile(treeFrom, names)
		if err != nil {
			return err
		}
		for i, e := range hof.Entries() {
			fmt.Fprintf(out, "#%d fitness=%d generation=%d agent=%d\n", i+1, e.Fitness, e.Generation, e.Agent)
			fmt.Fprint(out, e.Tree.Format(names))
		}
		return nil
	}

	treeSeed := seed
	if treeSeed == 0 {
		treeSeed = time.Now().UnixNano()
	}
	tree := dtree.New(0)
	tree.Randomize(rand.New(rand.NewSource(treeSeed)), cat.PredicateIDs(), cat.ActionIDs())
	fmt.Fprintf(out, "seed=%d nodes=%d depth=%d\n", treeSeed, tree.NodeCount(), tree.Depth())
	fmt.Fprint(out, tree.Format(names))
	return nil
}
