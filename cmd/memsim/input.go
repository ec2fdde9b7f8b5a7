package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/garethgeorge/memsim/internal/workload"
	"github.com/spf13/cobra"
)

const traceExt = ".trace"

// genFlags describe a generated workload.
type genFlags struct {
	cfg workload.GenConfig
}

func (g *genFlags) register(cmd *cobra.Command, defaultOps int) {
	d := workload.DefaultGenConfig()
	cmd.Flags().Int64Var(&g.cfg.Seed, "seed", d.Seed, "Seed for generated workloads")
	cmd.Flags().IntVar(&g.cfg.Ops, "ops", defaultOps, "Number of generated ops")
	cmd.Flags().Uint64Var(&g.cfg.MinSize, "min", d.MinSize, "Smallest generated allocation")
	cmd.Flags().Uint64Var(&g.cfg.MaxSize, "max", d.MaxSize, "Largest generated allocation")
	cmd.Flags().Float64Var(&g.cfg.FreeRatio, "free-ratio", d.FreeRatio, "Chance that a generated op is a free")
}

// loadOps reads the workload named by args: a trace file (by extension), a
// script file, a generated workload when --ops is positive, or the demo script.
func loadOps(args []string, gen genFlags) ([]workload.Op, string, error) {
	if len(args) == 1 {
		path := args[0]
		if filepath.Ext(path) == traceExt {
			ops, err := workload.ReadTraceFile(path)
			return ops, path, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		ops, err := workload.ParseScript(f)
		if err != nil {
			return nil, "", fmt.Errorf("script %s: %w", path, err)
		}
		return ops, path, nil
	}
	if gen.cfg.Ops > 0 {
		ops, err := workload.Generate(gen.cfg)
		if err != nil {
			return nil, "", fmt.Errorf("generate workload: %w", err)
		}
		return ops, fmt.Sprintf("generated (seed %d, %d ops)", gen.cfg.Seed, gen.cfg.Ops), nil
	}
	return workload.DemoScript(), "demo script", nil
}
