package compare

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/garethgeorge/memsim/internal/allocator"
	"github.com/garethgeorge/memsim/internal/placement"
	"github.com/garethgeorge/memsim/internal/progress"
	"github.com/garethgeorge/memsim/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holesThenRequest leaves holes of 100 at 0, 50 at 200 and 150 at 350, then
// asks for 40 and 140 bytes.
func holesThenRequest() []workload.Op {
	return []workload.Op{
		{Kind: workload.OpAlloc, Tag: "h1", Size: 100},
		{Kind: workload.OpAlloc, Tag: "k1", Size: 100},
		{Kind: workload.OpAlloc, Tag: "h2", Size: 50},
		{Kind: workload.OpAlloc, Tag: "k2", Size: 100},
		{Kind: workload.OpFree, Tag: "h1"},
		{Kind: workload.OpFree, Tag: "h2"},
		{Kind: workload.OpAlloc, Tag: "x", Size: 40},
		{Kind: workload.OpAlloc, Tag: "y", Size: 140},
	}
}

func TestRun(t *testing.T) {
	outcomes, err := Run(context.Background(), Request{
		Config: allocator.Config{PoolSize: 500},
		Ops:    holesThenRequest(),
		Verify: true,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	byStrategy := map[placement.Strategy]Outcome{}
	for i, o := range outcomes {
		assert.Equal(t, placement.Strategies()[i], o.Strategy)
		byStrategy[o.Strategy] = o
	}

	// worst-fit and next-fit put x into the 150 hole, so y no longer fits.
	assert.Equal(t, 0, byStrategy[placement.First].Result.AllocFailures)
	assert.Equal(t, 0, byStrategy[placement.Best].Result.AllocFailures)
	assert.Equal(t, 1, byStrategy[placement.Worst].Result.AllocFailures)
	assert.Equal(t, 1, byStrategy[placement.Next].Result.AllocFailures)

	// best-fit leaves its 100 byte hole intact, first-fit splinters it.
	ranked := Rank(outcomes)
	assert.Equal(t, placement.Best, ranked[0].Strategy)
	assert.Equal(t, placement.First, ranked[1].Strategy)
	assert.Equal(t, placement.Worst, outcomes[2].Strategy, "Rank must not reorder its input")
}

func TestRun_Subset(t *testing.T) {
	var mu sync.Mutex
	tracked := map[placement.Strategy]bool{}
	outcomes, err := Run(context.Background(), Request{
		Config:     allocator.Config{PoolSize: 500},
		Strategies: []placement.Strategy{placement.Next, placement.Best},
		Ops:        workload.DemoScript(),
		NewProgress: func(s placement.Strategy) progress.BarProgressTracker {
			mu.Lock()
			defer mu.Unlock()
			tracked[s] = true
			return progress.NoopBarProgressTracker{}
		},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, placement.Next, outcomes[0].Strategy)
	assert.Equal(t, placement.Best, outcomes[1].Strategy)
	assert.True(t, tracked[placement.Next])
	assert.True(t, tracked[placement.Best])
}

func TestRun_Errors(t *testing.T) {
	t.Run("bad pool", func(t *testing.T) {
		_, err := Run(context.Background(), Request{Ops: workload.DemoScript()})
		assert.ErrorIs(t, err, allocator.ErrInvalidConfig)
	})

	t.Run("bad workload", func(t *testing.T) {
		_, err := Run(context.Background(), Request{
			Config: allocator.Config{PoolSize: 10},
			Ops:    []workload.Op{{Kind: workload.OpFree, Tag: "nope"}},
		})
		assert.ErrorContains(t, err, "nope")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, Request{Config: allocator.Config{PoolSize: 10}, Ops: workload.DemoScript()})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRender(t *testing.T) {
	outcomes, err := Run(context.Background(), Request{
		Config: allocator.Config{PoolSize: 500},
		Ops:    holesThenRequest(),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, outcomes)
	out := buf.String()
	for _, s := range placement.Strategies() {
		assert.Contains(t, out, s.String())
	}
	assert.Contains(t, out, "Fragmentation")
}
