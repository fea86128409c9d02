package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"fcc-kernel/internal/admin"
	"fcc-kernel/internal/config"
	"fcc-kernel/internal/cycle"
	"fcc-kernel/internal/detlog"
	"fcc-kernel/internal/hal"
	"fcc-kernel/internal/logging"
	"fcc-kernel/internal/pqc"
	"fcc-kernel/internal/safety"
)

var (
	runConfigPath string
	runSchemaPath string
	runTicks      uint64
	runStrict     bool
	runColor      bool
	runTUI        bool
	runLogFile    string
	runDetLog     string
	runRealtime   bool
	runAdminAddr  string
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the flight-control kernel against the simulated HAL",
	Long:  "run drives the partition scheduler, redundant voter and safety monitor for a fixed number of ticks and reports pass or fail.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if runVerbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)
		ctx := logging.NewContext(context.Background(), logger)

		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}
		if envPeriod := os.Getenv("TICK_PERIOD_US"); envPeriod != "" {
			p, err := strconv.ParseUint(envPeriod, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid TICK_PERIOD_US: %w", err)
			}
			cfg.TickPeriodUS = p
		}

		var eng *cycle.Engine
		snapshot := func() safety.Snapshot {
			if eng == nil {
				return safety.Snapshot{}
			}
			return eng.Monitor().Snapshot()
		}

		writer, events, cleanup, err := newWriters(cfg, runColor, runTUI, runLogFile, snapshot)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := []cycle.Option{cycle.WithSigner(pqc.NewMockSigner())}
		if runStrict {
			opts = append(opts, cycle.WithStrictScheduling())
		}
		if runDetLog != "" {
			det, err := detlog.NewWriter(runDetLog)
			if err != nil {
				return err
			}
			defer det.Close()
			opts = append(opts, cycle.WithDetLog(det))
		}

		eng, err = cycle.NewEngine(cfg, hal.NewSim(), writer, events, nil, opts...)
		if err != nil {
			return err
		}
		logger.Info("kernel starting", "run_id", eng.RunID(), "ticks", runTicks, "strict", runStrict)

		if runRealtime {
			return runWallClock(ctx, eng)
		}

		runErr := eng.RunTicks(ctx, runTicks)
		return report(cmd, eng, runErr)
	},
}

// runWallClock drives the engine from a real ticker until interrupted,
// with the admin surface exposed alongside.
func runWallClock(ctx context.Context, eng *cycle.Engine) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logging.FromContext(ctx)
	srv := admin.NewServer(eng)
	go func() {
		logger.Info("admin server listening", "addr", runAdminAddr)
		if err := srv.Start(ctx, runAdminAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server failed", "error", err)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		cancel()
		<-done
		logger.Info("kernel stopped")
		return nil
	case err := <-done:
		return err
	}
}

// report prints the pass/fail verdict for a fixed-tick harness run.
func report(cmd *cobra.Command, eng *cycle.Engine, runErr error) error {
	snap := eng.Monitor().Snapshot()
	_, consensus := eng.Voter().Consensus(eng.Subsystem())

	pass := runErr == nil && consensus && snap.State != safety.StateFailed.String()
	verdict := "PASS"
	if !pass {
		verdict = "FAIL"
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"%s run=%s ticks=%d state=%s consensus=%v violations=%d fallbacks=%d\n",
		verdict, eng.RunID(), eng.Tick(), snap.State, consensus,
		snap.TotalViolations, snap.FallbackActivations)

	if runErr != nil {
		return runErr
	}
	if !pass {
		return fmt.Errorf("kernel run failed: state=%s consensus=%v", snap.State, consensus)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/kernel.yaml", "Path to kernel configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/kernel.cue", "Path to CUE schema file")
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 1000, "Number of simulated ticks to run")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "Treat scheduling faults as fatal")
	runCmd.Flags().BoolVar(&runColor, "color", false, "Human-readable colored output instead of JSON")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Live terminal dashboard")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export cycle/event logs (JSONL)")
	runCmd.Flags().StringVar(&runDetLog, "det-log", "", "Path to the deterministic actuation log")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "Run from a wall-clock ticker until interrupted")
	runCmd.Flags().StringVar(&runAdminAddr, "admin", ":8080", "Admin server listen address (realtime mode)")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Debug logging")
}
