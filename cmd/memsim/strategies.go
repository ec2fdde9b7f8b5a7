package main

import (
	"fmt"

	"github.com/garethgeorge/memsim/internal/placement"
	"github.com/spf13/cobra"
)

var strategyDescriptions = map[placement.Strategy]string{
	placement.First: "lowest-addressed hole that fits",
	placement.Best:  "smallest hole that fits",
	placement.Worst: "largest hole",
	placement.Next:  "first fit, resuming after the previous allocation",
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "strategies",
		Short: "List placement strategies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range placement.Strategies() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", s, strategyDescriptions[s])
			}
		},
	})
}
