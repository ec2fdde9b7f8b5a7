// Package placement implements the search policies that choose which free
// block of a blocklist.List satisfies an allocation request.
package placement

import (
	"fmt"

	"github.com/garethgeorge/memsim/internal/blocklist"
)

// Placer picks a free block of at least size bytes. Place returns false when
// no free block is large enough. Placers never modify the list.
type Placer interface {
	Place(l *blocklist.List, size uint64) (blocklist.Ref, bool)
	// Reset clears any search state carried between calls.
	Reset()
	Strategy() Strategy
}

// New returns a fresh Placer for the strategy.
func New(s Strategy) (Placer, error) {
	switch s {
	case First:
		return FirstFit{}, nil
	case Best:
		return BestFit{}, nil
	case Worst:
		return WorstFit{}, nil
	case Next:
		return &NextFit{}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, s)
	}
}

// FirstFit takes the lowest-addressed free block that is large enough.
type FirstFit struct{}

var _ Placer = FirstFit{}

func (FirstFit) Place(l *blocklist.List, size uint64) (blocklist.Ref, bool) {
	for ref, b := range l.All() {
		if !b.Allocated && b.Size() >= size {
			return ref, true
		}
	}
	return blocklist.NoRef, false
}

func (FirstFit) Reset()             {}
func (FirstFit) Strategy() Strategy { return First }

// BestFit takes the smallest free block that is large enough, preferring the
// lowest address among equal sizes.
type BestFit struct{}

var _ Placer = BestFit{}

func (BestFit) Place(l *blocklist.List, size uint64) (blocklist.Ref, bool) {
	best := blocklist.NoRef
	var bestSize uint64
	for ref, b := range l.All() {
		if b.Allocated || b.Size() < size {
			continue
		}
		if best == blocklist.NoRef || b.Size() < bestSize {
			best, bestSize = ref, b.Size()
		}
	}
	return best, best != blocklist.NoRef
}

func (BestFit) Reset()             {}
func (BestFit) Strategy() Strategy { return Best }

// WorstFit takes the largest free block, preferring the lowest address among
// equal sizes.
type WorstFit struct{}

var _ Placer = WorstFit{}

func (WorstFit) Place(l *blocklist.List, size uint64) (blocklist.Ref, bool) {
	worst := blocklist.NoRef
	var worstSize uint64
	for ref, b := range l.All() {
		if b.Allocated || b.Size() < size {
			continue
		}
		if worst == blocklist.NoRef || b.Size() > worstSize {
			worst, worstSize = ref, b.Size()
		}
	}
	return worst, worst != blocklist.NoRef
}

func (WorstFit) Reset()             {}
func (WorstFit) Strategy() Strategy { return Worst }

// NextFit behaves like FirstFit but resumes scanning where the previous
// placement ended, wrapping around at the end of the pool.
//
// The cursor is kept as a pool offset rather than a block reference so that it
// survives the block it pointed at being merged into a neighbour.
type NextFit struct {
	cursor uint64
}

var _ Placer = (*NextFit)(nil)

func (n *NextFit) Place(l *blocklist.List, size uint64) (blocklist.Ref, bool) {
	ref := l.Containing(n.cursor)
	for visited := 0; visited < l.Len(); visited++ {
		b := l.Get(ref)
		if !b.Allocated && b.Size() >= size {
			// The block after the placed one starts at Start+size, whether
			// that is the split remainder or the existing successor.
			n.cursor = b.Start + size
			if n.cursor >= l.Total() {
				n.cursor = 0
			}
			return ref, true
		}
		if ref = l.Next(ref); ref == blocklist.NoRef {
			ref = l.Head()
		}
	}
	return blocklist.NoRef, false
}

// Cursor is the pool offset the next search starts from.
func (n *NextFit) Cursor() uint64 {
	return n.cursor
}

func (n *NextFit) Reset()             { n.cursor = 0 }
func (n *NextFit) Strategy() Strategy { return Next }
