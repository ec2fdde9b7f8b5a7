package main

import (
	"fmt"
	"os"

	"github.com/garethgeorge/memsim/internal/workload"
	"github.com/spf13/cobra"
)

var (
	genOpts   genFlags
	genOutput string
	genScript bool
)

func init() {
	cmd := newGenCmd()
	genOpts.register(cmd, workload.DefaultGenConfig().Ops)
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file (required)")
	cmd.Flags().BoolVar(&genScript, "script", false, "Write a plain text script instead of a trace")
	cobra.CheckErr(cmd.MarkFlagRequired("output"))
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate a random workload",
		Long: `The gen command writes a seeded pseudo-random workload of allocations and
frees, either as a compressed trace or as a script.

Example:
  memsim gen --seed 42 --ops 10000 -o w.trace
  memsim gen --ops 50 --script -o w.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd)
		},
	}
}

func runGen(cmd *cobra.Command) error {
	ops, err := workload.Generate(genOpts.cfg)
	if err != nil {
		return err
	}
	if genScript {
		err = writeScriptFile(genOutput, ops)
	} else {
		err = workload.WriteTraceFile(genOutput, ops)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d ops to %s (digest %s)\n", len(ops), genOutput, workload.Digest(ops)[:16])
	return nil
}

func writeScriptFile(path string, ops []workload.Op) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return workload.WriteScript(f, ops)
}
