package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/garethgeorge/memsim/internal/allocator"
	"github.com/garethgeorge/memsim/internal/placement"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	quiet   bool

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "memsim",
	Short: "Simulate and compare pool allocation strategies",
	Long: `memsim manages a fixed-size simulated memory pool and services allocation
and free requests with a first-fit, best-fit, worst-fit or next-fit placement
strategy. Workloads come from scripts, recorded traces or a seeded generator.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}

func setupLogging(w io.Writer) {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// poolFlags are the pool configuration flags shared by run and compare.
type poolFlags struct {
	configPath string
	strategy   placement.Strategy
	size       uint64
	base       uint64
}

func (p *poolFlags) register(cmd *cobra.Command, withStrategy bool) {
	p.strategy = allocator.DefaultConfig().Strategy
	cmd.Flags().StringVarP(&p.configPath, "config", "c", "", "TOML file with strategy, pool_size and base_address")
	cmd.Flags().Uint64VarP(&p.size, "size", "s", allocator.DefaultPoolSize, "Pool size in bytes")
	cmd.Flags().Uint64Var(&p.base, "base", 0, "Address of the first pool byte")
	if withStrategy {
		cmd.Flags().Var(&p.strategy, "strategy", "Placement strategy: first, best, worst or next")
	}
}

// resolve loads the config file if one was given and applies any flags the
// user set explicitly on top of it.
func (p *poolFlags) resolve(cmd *cobra.Command) (allocator.Config, error) {
	cfg := allocator.DefaultConfig()
	if p.configPath != "" {
		loaded, err := allocator.LoadConfig(p.configPath)
		if err != nil {
			return allocator.Config{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy = p.strategy
	}
	if flags.Changed("size") || p.configPath == "" {
		cfg.PoolSize = p.size
	}
	if flags.Changed("base") {
		cfg.BaseAddress = p.base
	}
	if err := cfg.Validate(); err != nil {
		return allocator.Config{}, err
	}
	return cfg, nil
}
