package main

import (
	"fmt"

	"github.com/garethgeorge/memsim/internal/compare"
	"github.com/garethgeorge/memsim/internal/placement"
	"github.com/garethgeorge/memsim/internal/progress"
	"github.com/garethgeorge/memsim/internal/workload"
	"github.com/spf13/cobra"
)

var (
	comparePool       poolFlags
	compareGen        genFlags
	compareStrategies []string
	compareVerify     bool
)

func init() {
	cmd := newCompareCmd()
	comparePool.register(cmd, false)
	compareGen.register(cmd, workload.DefaultGenConfig().Ops)
	cmd.Flags().StringSliceVar(&compareStrategies, "strategies", nil, "Strategies to compare (default all)")
	cmd.Flags().BoolVar(&compareVerify, "verify", false, "Check pool invariants after every op")
	rootCmd.AddCommand(cmd)
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [script|trace]",
		Short: "Replay one workload under several strategies",
		Long: `The compare command replays the same workload against a fresh pool for each
placement strategy, in parallel, and prints a table of the results ordered as
requested plus the best performing strategy.

Example:
  memsim compare --size 65536 --ops 20000
  memsim compare --strategies best,worst recorded.trace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args)
		},
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := comparePool.resolve(cmd)
	if err != nil {
		return err
	}
	var strategies []placement.Strategy
	for _, name := range compareStrategies {
		s, err := placement.ParseStrategy(name)
		if err != nil {
			return err
		}
		strategies = append(strategies, s)
	}
	ops, source, err := loadOps(args, compareGen)
	if err != nil {
		return err
	}

	outcomes, err := compare.Run(cmd.Context(), compare.Request{
		Config:     cfg,
		Strategies: strategies,
		Ops:        ops,
		Verify:     compareVerify,
		Logger:     logger,
		NewProgress: func(s placement.Strategy) progress.BarProgressTracker {
			return progress.NewLogBarProgressTracker(logger.With("strategy", s.String()))
		},
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "workload: %s, %d ops, digest %s\n", source, len(ops), workload.Digest(ops)[:16])
	fmt.Fprintf(out, "pool: %d bytes\n", cfg.PoolSize)
	compare.Render(out, outcomes)
	if ranked := compare.Rank(outcomes); len(ranked) > 0 {
		fmt.Fprintf(out, "best: %v fit\n", ranked[0].Strategy)
	}
	return nil
}
