// Package compare replays one workload under several placement strategies
// and reports how each one fared.
package compare

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/garethgeorge/memsim/internal/allocator"
	"github.com/garethgeorge/memsim/internal/placement"
	"github.com/garethgeorge/memsim/internal/progress"
	"github.com/garethgeorge/memsim/internal/workload"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	// Config supplies the pool geometry. Its Strategy is replaced per run.
	Config allocator.Config
	// Strategies to compare, all of them when empty.
	Strategies []placement.Strategy
	Ops        []workload.Op
	Verify     bool
	Logger     *slog.Logger
	// NewProgress optionally returns a tracker for each strategy's replay.
	NewProgress func(placement.Strategy) progress.BarProgressTracker
}

type Outcome struct {
	Strategy placement.Strategy
	Result   workload.Result
}

// Run replays req.Ops once per strategy, each against its own allocator, in
// parallel. Outcomes are returned in the order of req.Strategies.
func Run(ctx context.Context, req Request) ([]Outcome, error) {
	strategies := req.Strategies
	if len(strategies) == 0 {
		strategies = placement.Strategies()
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	outcomes := make([]Outcome, len(strategies))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range strategies {
		g.Go(func() error {
			cfg := req.Config
			cfg.Strategy = s
			runLogger := logger.With("strategy", s.String())
			a, err := allocator.New(cfg, allocator.WithLogger(runLogger))
			if err != nil {
				return fmt.Errorf("%v fit: %w", s, err)
			}

			opts := workload.ReplayOptions{Verify: req.Verify, Logger: runLogger}
			if req.NewProgress != nil {
				opts.Progress = req.NewProgress(s)
			}
			res, err := workload.Replay(ctx, a, req.Ops, opts)
			if err != nil {
				return fmt.Errorf("%v fit: %w", s, err)
			}
			outcomes[i] = Outcome{Strategy: s, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Rank orders outcomes from best to worst: fewest failed allocations first,
// then least fragmented free space. Ties keep their input order.
func Rank(outcomes []Outcome) []Outcome {
	ranked := slices.Clone(outcomes)
	slices.SortStableFunc(ranked, func(a, b Outcome) int {
		if c := cmp.Compare(a.Result.AllocFailures, b.Result.AllocFailures); c != 0 {
			return c
		}
		return cmp.Compare(a.Result.Stats.Fragmentation(), b.Result.Stats.Fragmentation())
	})
	return ranked
}

// Render writes outcomes as a table, one row per strategy.
func Render(w io.Writer, outcomes []Outcome) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Strategy", "Allocs", "Failed", "Frees", "Holes", "Largest Free", "Free Bytes", "Peak", "Fragmentation"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, o := range outcomes {
		r := o.Result
		table.Append([]string{
			o.Strategy.String(),
			strconv.Itoa(r.Allocs),
			strconv.Itoa(r.AllocFailures),
			strconv.Itoa(r.Frees),
			strconv.Itoa(r.Stats.Holes),
			strconv.FormatUint(r.Stats.LargestFree, 10),
			strconv.FormatUint(r.Stats.Free, 10),
			strconv.FormatUint(r.PeakAllocated, 10),
			fmt.Sprintf("%.1f%%", r.Stats.Fragmentation()*100),
		})
	}
	table.Render()
}
