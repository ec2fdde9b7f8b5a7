// Package allocator simulates a heap allocator over a fixed-size byte pool.
//
// An Allocator owns the pool, the block list that partitions it, and the
// placement strategy used to choose where each allocation goes. Addresses are
// pool offsets shifted by the configured base address; they are opaque to the
// caller except through Bytes.
//
// An Allocator is not thread-safe. Callers that share one across goroutines
// must serialize every call, including the statistics queries.
package allocator

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/garethgeorge/memsim/internal/blocklist"
	"github.com/garethgeorge/memsim/internal/placement"
)

// Addr is an address inside the simulated pool.
type Addr uint64

// NilAddr is returned by a failed Allocate and is ignored by Free.
const NilAddr Addr = math.MaxUint64

type Option func(*Allocator)

// WithLogger routes allocator diagnostics to logger. By default they are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

type Allocator struct {
	cfg    Config
	pool   []byte
	blocks *blocklist.List
	placer placement.Placer
	logger *slog.Logger
}

// New validates cfg and returns an initialized Allocator.
func New(cfg Config, opts ...Option) (*Allocator, error) {
	a := &Allocator{}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.Init(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Init replaces the pool, block list and strategy with fresh ones built from
// cfg. Addresses returned before the call are no longer valid afterwards. On
// error the previous session is left untouched.
func (a *Allocator) Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	placer, err := placement.New(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	a.cfg = cfg
	a.pool = make([]byte, cfg.PoolSize)
	a.blocks = blocklist.New(cfg.PoolSize)
	a.placer = placer
	a.logger.Debug("pool initialized",
		"strategy", cfg.Strategy, "size", cfg.PoolSize, "base", cfg.BaseAddress)
	return nil
}

func (a *Allocator) mustInit() {
	if a.blocks == nil {
		panic("allocator: used before Init")
	}
}

// Config returns the configuration of the active session.
func (a *Allocator) Config() Config {
	a.mustInit()
	return a.cfg
}

func (a *Allocator) Strategy() placement.Strategy {
	a.mustInit()
	return a.cfg.Strategy
}

// Allocate reserves size bytes and returns their address. It returns NilAddr
// and an error matching ErrNoFit when no free block is large enough, in which
// case nothing changes. size must be at least 1.
func (a *Allocator) Allocate(size uint64) (Addr, error) {
	a.mustInit()
	if size < 1 {
		panic("allocator: allocation size must be at least 1 byte")
	}

	if largest := a.blocks.LargestFree(); size > largest {
		a.logger.Debug("allocation failed", "size", size, "largest_free", largest)
		return NilAddr, fmt.Errorf("allocate %d bytes (largest free block %d): %w", size, largest, ErrNoFit)
	}

	ref, ok := a.placer.Place(a.blocks, size)
	if !ok {
		// LargestFree guarantees some block fits, so every placer must find one.
		panic(fmt.Sprintf("allocator: %v placement found no block for %d bytes", a.cfg.Strategy, size))
	}
	ref, _ = a.blocks.Split(ref, size)

	addr := a.addr(a.blocks.Get(ref).Start)
	a.logger.Debug("allocated", "addr", uint64(addr), "size", size, "strategy", a.cfg.Strategy)
	return addr, nil
}

// Free releases the block starting at addr and merges it with free
// neighbours. Freeing NilAddr does nothing. An address that does not start an
// allocated block leaves the pool untouched and returns an error matching
// ErrInvalidFree, which callers may ignore.
func (a *Allocator) Free(addr Addr) error {
	a.mustInit()
	if addr == NilAddr {
		return nil
	}

	ref, ok := a.lookup(addr)
	if !ok {
		a.logger.Debug("ignoring free of unknown address", "addr", uint64(addr))
		return fmt.Errorf("free %#x: %w", uint64(addr), ErrInvalidFree)
	}

	size := a.blocks.Get(ref).Size()
	merged := a.blocks.Coalesce(ref)
	a.logger.Debug("freed", "addr", uint64(addr), "size", size, "hole", a.blocks.Get(merged).Range)
	return nil
}

// Bytes returns the pool memory of the allocated block at addr, or nil if addr
// does not start an allocated block. The slice is only valid until the block
// is freed or the allocator is re-initialized.
func (a *Allocator) Bytes(addr Addr) []byte {
	a.mustInit()
	ref, ok := a.lookup(addr)
	if !ok {
		return nil
	}
	b := a.blocks.Get(ref)
	return a.pool[b.Start:b.End:b.End]
}

// Check verifies the block list invariants and that allocated and free bytes
// account for the whole pool.
func (a *Allocator) Check() error {
	a.mustInit()
	if err := a.blocks.Validate(); err != nil {
		return fmt.Errorf("block list: %w", err)
	}
	if alloc, free := a.BytesAllocated(), a.BytesFree(); alloc+free != a.cfg.PoolSize {
		return fmt.Errorf("allocated %d + free %d bytes != pool size %d", alloc, free, a.cfg.PoolSize)
	}
	return nil
}

func (a *Allocator) addr(offset uint64) Addr {
	return Addr(a.cfg.BaseAddress + offset)
}

func (a *Allocator) offset(addr Addr) (uint64, bool) {
	if uint64(addr) < a.cfg.BaseAddress {
		return 0, false
	}
	off := uint64(addr) - a.cfg.BaseAddress
	return off, off < a.cfg.PoolSize
}

// lookup returns the allocated block that starts at addr.
func (a *Allocator) lookup(addr Addr) (blocklist.Ref, bool) {
	off, ok := a.offset(addr)
	if !ok {
		return blocklist.NoRef, false
	}
	ref, ok := a.blocks.Find(off)
	if !ok || !a.blocks.Get(ref).Allocated {
		return blocklist.NoRef, false
	}
	return ref, true
}
