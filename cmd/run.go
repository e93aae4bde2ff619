package cmd

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/logger"
	"github.com/stomp-org/stomp/internal/meta"
	"github.com/stomp-org/stomp/internal/policy"
	"github.com/stomp-org/stomp/internal/stats"
	"github.com/stomp-org/stomp/internal/stomp"
	"github.com/stomp-org/stomp/internal/workload"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.WithConfigFile(cfgFile))
			if err != nil {
				return err
			}

			opts := []logger.Option{logger.WithFormat(cfg.Global.LogFormat)}
			if cfg.Global.Debug {
				opts = append(opts, logger.WithDebug())
			}
			if cfg.Global.Quiet {
				opts = append(opts, logger.WithQuiet())
			}
			lg := logger.NewLogger(opts...)

			runID := uuid.New().String()[:8]
			ctx := logger.WithValues(logger.WithLogger(cmd.Context(), lg), "run", runID)

			for _, w := range cfg.Warnings {
				logger.Warn(ctx, w)
			}

			return runSimulation(ctx, cfg, runID)
		},
	}
}

func runSimulation(ctx context.Context, cfg *config.Config, runID string) error {
	ld := &workload.Loader{
		WorkingDir:  cfg.Global.WorkingDir,
		InputsDir:   cfg.Simulation.InputsDir,
		TraceFile:   cfg.Simulation.InputTraceFile,
		StdevFactor: cfg.Simulation.StdevFactor,
		Scale:       cfg.Simulation.ArrivalTimeScale,
	}

	registry, err := meta.LoadWorkload(ctx, ld)
	if err != nil {
		return err
	}
	logger.Info(ctx, "workload loaded", "dags", registry.Len())

	sink, err := stats.NewTraceSink(cfg.Global.WorkingDir, cfg.Global.Basename, cfg.Simulation.SchedPolicy, runID)
	if err != nil {
		return err
	}
	defer func() {
		_ = sink.Close()
	}()

	pol, err := policy.New(cfg.Simulation.SchedPolicy)
	if err != nil {
		return err
	}

	seed := cfg.Simulation.RandomSeed
	rng := rand.New(rand.NewPCG(seed, seed))

	b := bridge.New(cfg.Simulation.MaxQueueSize)
	st := stats.New(cfg.Simulation.BinSize, sink)
	pool := stomp.NewPool(cfg.Servers, rng)
	sim := stomp.NewSimulator(cfg, pool, b, pol, st, rng)
	mgr := meta.NewManager(registry, b, cfg.Servers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgr.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "manager loop failed", "err", err)
		}
	}()

	simErr := sim.Run(runCtx)
	cancel()
	wg.Wait()

	// Results are written regardless of how the run ended; a DAG missing
	// from the file simply never reached terminal state.
	outPath := filepath.Join(cfg.Global.WorkingDir, "out.csv")
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := meta.WriteResults(out, mgr.Results()); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info(ctx, "results written", "path", outPath, "dags", len(mgr.Results()))

	if !cfg.Global.Quiet {
		stats.RenderSummary(os.Stdout, st, pool.Usage(), sim.SimTime())
	}

	if simErr != nil && !errors.Is(simErr, context.Canceled) {
		return simErr
	}
	return nil
}
