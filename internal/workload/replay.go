package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/garethgeorge/memsim/internal/allocator"
	"github.com/garethgeorge/memsim/internal/progress"
)

// ctxCheckInterval is how many ops run between context checks.
const ctxCheckInterval = 256

type ReplayOptions struct {
	// Verify runs allocator.Check after every op.
	Verify bool
	// Observer handles OpStatus and OpDump. Those ops are skipped when nil.
	Observer func(op Op, a *allocator.Allocator) error
	Progress progress.BarProgressTracker
	Logger   *slog.Logger
}

// Result summarizes a replay.
type Result struct {
	Ops           int
	Allocs        int
	AllocFailures int
	Frees         int
	// InvalidFrees counts frees the allocator rejected, e.g. double frees.
	InvalidFrees  int
	PeakAllocated uint64
	Stats         allocator.Stats
}

// Replay runs ops against a in order. Failed allocations are recorded and the
// tag is bound to allocator.NilAddr, so a later free of that tag is a no-op.
// Freeing a tag that was never allocated, or allocating under a tag that still
// holds a block, is an error in the workload itself. Freeing a tag twice counts
// as an invalid free.
func Replay(ctx context.Context, a *allocator.Allocator, ops []Op, opts ReplayOptions) (Result, error) {
	prog := opts.Progress
	if prog == nil {
		prog = progress.NoopBarProgressTracker{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	prog.SetMessage(fmt.Sprintf("replaying %d ops with %v fit", len(ops), a.Strategy()))
	prog.SetTotal(int64(len(ops)))
	prog.SetDone(0)

	var res Result
	tags := make(map[string]binding)
	for i, op := range ops {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				prog.SetError(err)
				return res, err
			}
		}
		if err := applyOp(a, op, tags, &res, opts.Observer); err != nil {
			err = fmt.Errorf("op %d (%v): %w", i, op, err)
			prog.SetError(err)
			return res, err
		}
		if opts.Verify {
			if err := a.Check(); err != nil {
				err = fmt.Errorf("invariant violated after op %d (%v): %w", i, op, err)
				prog.SetError(err)
				return res, err
			}
		}
		res.Ops++
		prog.SetDone(res.Ops)
	}
	res.Stats = a.Stats()
	prog.MarkFinished()
	logger.Debug("replay finished",
		"strategy", a.Strategy(), "ops", res.Ops, "failures", res.AllocFailures, "holes", res.Stats.Holes)
	return res, nil
}

// binding is the address last handed out under a tag.
type binding struct {
	addr allocator.Addr
	live bool
}

func applyOp(a *allocator.Allocator, op Op, tags map[string]binding, res *Result, observer func(Op, *allocator.Allocator) error) error {
	switch op.Kind {
	case OpAlloc:
		if op.Size == 0 {
			return errors.New("zero-sized allocation")
		}
		if b := tags[op.Tag]; b.live {
			return fmt.Errorf("alloc of tag %q which is still allocated at %#x", op.Tag, uint64(b.addr))
		}
		addr, err := a.Allocate(op.Size)
		if errors.Is(err, allocator.ErrNoFit) {
			tags[op.Tag] = binding{addr: allocator.NilAddr}
			res.AllocFailures++
			return nil
		} else if err != nil {
			return err
		}
		tags[op.Tag] = binding{addr: addr, live: true}
		res.Allocs++
		res.PeakAllocated = max(res.PeakAllocated, a.BytesAllocated())
	case OpFree:
		b, ok := tags[op.Tag]
		if !ok {
			return fmt.Errorf("free of unknown tag %q", op.Tag)
		}
		if !b.live && b.addr != allocator.NilAddr {
			// Already freed. The address may belong to another tag by now.
			res.InvalidFrees++
			return nil
		}
		if err := a.Free(b.addr); errors.Is(err, allocator.ErrInvalidFree) {
			res.InvalidFrees++
		} else if err != nil {
			return err
		} else {
			tags[op.Tag] = binding{addr: b.addr}
			res.Frees++
		}
	case OpStatus, OpDump:
		if observer != nil {
			return observer(op, a)
		}
	default:
		return fmt.Errorf("unknown op kind %v", op.Kind)
	}
	return nil
}
