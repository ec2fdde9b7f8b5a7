package allocator

// HoleCount is the number of free blocks.
func (a *Allocator) HoleCount() int {
	a.mustInit()
	n := 0
	for _, b := range a.blocks.All() {
		if !b.Allocated {
			n++
		}
	}
	return n
}

func (a *Allocator) BytesAllocated() uint64 {
	a.mustInit()
	var n uint64
	for _, b := range a.blocks.All() {
		if b.Allocated {
			n += b.Size()
		}
	}
	return n
}

func (a *Allocator) BytesFree() uint64 {
	a.mustInit()
	var n uint64
	for _, b := range a.blocks.All() {
		if !b.Allocated {
			n += b.Size()
		}
	}
	return n
}

// LargestFree is the size of the largest free block, which is also the
// largest request Allocate can currently satisfy. It is 0 when the pool is
// fully allocated.
func (a *Allocator) LargestFree() uint64 {
	a.mustInit()
	return a.blocks.LargestFree()
}

// SmallFreeCount counts free blocks of at most threshold bytes.
func (a *Allocator) SmallFreeCount(threshold uint64) int {
	a.mustInit()
	n := 0
	for _, b := range a.blocks.All() {
		if !b.Allocated && b.Size() <= threshold {
			n++
		}
	}
	return n
}

// IsAllocated reports whether addr is the start of an allocated block.
func (a *Allocator) IsAllocated(addr Addr) bool {
	a.mustInit()
	_, ok := a.lookup(addr)
	return ok
}

// Base is the address of the first byte of the pool.
func (a *Allocator) Base() Addr {
	a.mustInit()
	return Addr(a.cfg.BaseAddress)
}

func (a *Allocator) TotalSize() uint64 {
	a.mustInit()
	return a.cfg.PoolSize
}

// Stats is a point-in-time summary of the pool.
type Stats struct {
	Total       uint64
	Allocated   uint64
	Free        uint64
	Holes       int
	Blocks      int
	LargestFree uint64
}

// AverageHole is the mean free block size, 0 when nothing is free.
func (s Stats) AverageHole() float64 {
	if s.Holes == 0 {
		return 0
	}
	return float64(s.Free) / float64(s.Holes)
}

// Fragmentation is the share of free bytes that cannot be handed out in a
// single allocation: 0 when all free space is one hole, approaching 1 as it
// splinters.
func (s Stats) Fragmentation() float64 {
	if s.Free == 0 {
		return 0
	}
	return 1 - float64(s.LargestFree)/float64(s.Free)
}

// Stats gathers every statistic in a single pass over the block list.
func (a *Allocator) Stats() Stats {
	a.mustInit()
	s := Stats{
		Total:       a.cfg.PoolSize,
		LargestFree: a.blocks.LargestFree(),
		Blocks:      a.blocks.Len(),
	}
	for _, b := range a.blocks.All() {
		if b.Allocated {
			s.Allocated += b.Size()
		} else {
			s.Free += b.Size()
			s.Holes++
		}
	}
	return s
}
