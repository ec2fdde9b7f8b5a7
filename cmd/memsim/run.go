package main

import (
	"fmt"

	"github.com/garethgeorge/memsim/internal/allocator"
	"github.com/garethgeorge/memsim/internal/progress"
	"github.com/garethgeorge/memsim/internal/workload"
	"github.com/spf13/cobra"
)

var (
	runPool     poolFlags
	runGenOpts  genFlags
	runTraceOut string
	runVerify   bool
)

func init() {
	cmd := newRunCmd()
	runPool.register(cmd, true)
	runGenOpts.register(cmd, 0)
	cmd.Flags().StringVar(&runTraceOut, "trace-out", "", "Record the workload to a trace file")
	cmd.Flags().BoolVar(&runVerify, "verify", true, "Check pool invariants after every op")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [script|trace]",
		Short: "Replay a workload against one strategy",
		Long: `The run command replays a workload against a single allocator and prints
the pool after every status or dump op, followed by a summary.

Without arguments it runs the demo script, or a generated workload when --ops is set.

Example:
  memsim run
  memsim run --strategy next --size 4096 workload.txt
  memsim run --ops 5000 --seed 7 --trace-out w.trace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args)
		},
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := runPool.resolve(cmd)
	if err != nil {
		return err
	}
	ops, source, err := loadOps(args, runGenOpts)
	if err != nil {
		return err
	}
	if runTraceOut != "" {
		if err := workload.WriteTraceFile(runTraceOut, ops); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		logger.Info("recorded trace", "path", runTraceOut, "ops", len(ops))
	}

	a, err := allocator.New(cfg, allocator.WithLogger(logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	observer := func(op workload.Op, a *allocator.Allocator) error {
		if op.Kind == workload.OpDump {
			a.Dump(out)
			return nil
		}
		return a.WriteStatus(out)
	}

	res, err := workload.Replay(cmd.Context(), a, ops, workload.ReplayOptions{
		Verify:   runVerify,
		Observer: observer,
		Progress: progress.NewLogBarProgressTracker(logger),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s: %d ops with %v fit on a %d byte pool\n", source, res.Ops, cfg.Strategy, cfg.PoolSize)
	fmt.Fprintf(out, "allocations: %d ok, %d failed; frees: %d ok, %d invalid; peak %d bytes\n",
		res.Allocs, res.AllocFailures, res.Frees, res.InvalidFrees, res.PeakAllocated)
	return a.WriteStatus(out)
}
