package workload

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

// GenConfig controls Generate. The same config always yields the same ops.
type GenConfig struct {
	Seed int64
	Ops  int
	// Allocation sizes are drawn uniformly from [MinSize, MaxSize].
	MinSize uint64
	MaxSize uint64
	// FreeRatio is the chance that a step frees a live allocation instead of
	// making a new one.
	FreeRatio float64
}

func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      1,
		Ops:       1000,
		MinSize:   1,
		MaxSize:   64,
		FreeRatio: 0.4,
	}
}

func (c GenConfig) Validate() error {
	if c.Ops < 0 {
		return fmt.Errorf("op count %d is negative", c.Ops)
	}
	if c.MinSize == 0 || c.MaxSize < c.MinSize {
		return fmt.Errorf("size range [%d, %d] is invalid", c.MinSize, c.MaxSize)
	}
	if c.MaxSize-c.MinSize >= math.MaxInt64 {
		return fmt.Errorf("size range [%d, %d] is too wide", c.MinSize, c.MaxSize)
	}
	if c.FreeRatio < 0 || c.FreeRatio >= 1 {
		return fmt.Errorf("free ratio %v must be in [0, 1)", c.FreeRatio)
	}
	return nil
}

// Generate builds a pseudo-random mix of allocations and frees. Frees only
// name tags that are live at that point in the sequence.
func Generate(cfg GenConfig) ([]Op, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	ops := make([]Op, 0, cfg.Ops)
	var live []string
	next := 0
	span := int64(cfg.MaxSize - cfg.MinSize + 1)
	for len(ops) < cfg.Ops {
		if len(live) > 0 && rng.Float64() < cfg.FreeRatio {
			idx := rng.Intn(len(live))
			ops = append(ops, Op{Kind: OpFree, Tag: live[idx]})
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		tag := "t" + strconv.Itoa(next)
		next++
		size := cfg.MinSize
		if span > 1 {
			size += uint64(rng.Int63n(span))
		}
		ops = append(ops, Op{Kind: OpAlloc, Tag: tag, Size: size})
		live = append(live, tag)
	}
	return ops, nil
}
