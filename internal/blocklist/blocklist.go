// Package blocklist tracks how a fixed-size pool is partitioned into free and
// allocated blocks. Blocks live in an arena slice and are linked in address
// order by index, so splits and merges never leave dangling references.
//
// A List is not thread-safe.
package blocklist

import (
	"fmt"
	"iter"

	"github.com/google/btree"
)

// Ref identifies a block within a List. Refs are only valid until the block
// is merged away by Coalesce.
type Ref int32

// NoRef is the absent block reference.
const NoRef Ref = -1

// Block is a contiguous span of the pool that is either free or allocated.
type Block struct {
	Range
	Allocated bool

	prev Ref
	next Ref
}

type startEntry struct {
	start uint64
	ref   Ref
}

type freeEntry struct {
	size  uint64
	start uint64
}

// List is an address-ordered sequence of blocks covering [0, total).
type List struct {
	total  uint64
	blocks []Block
	spare  []Ref // arena slots released by coalescing
	head   Ref
	count  int

	// byStart maps block start offsets to refs.
	byStart *btree.BTreeG[startEntry]
	// freeBySize tracks free blocks ordered by size, then start offset.
	freeBySize *btree.BTreeG[freeEntry]
}

// New returns a list holding a single free block that spans the whole pool.
func New(total uint64) *List {
	if total == 0 {
		panic("blocklist: pool size must be at least 1 byte")
	}
	l := &List{
		total:   total,
		head:    NoRef,
		byStart: btree.NewG(32, func(a, b startEntry) bool { return a.start < b.start }),
		freeBySize: btree.NewG(32, func(a, b freeEntry) bool {
			if a.size != b.size {
				return a.size < b.size
			}
			return a.start < b.start
		}),
	}
	ref := l.newBlock(Block{Range: Range{Start: 0, End: total}, prev: NoRef, next: NoRef})
	l.head = ref
	l.count = 1
	l.byStart.ReplaceOrInsert(startEntry{start: 0, ref: ref})
	l.addFree(l.blocks[ref].Range)
	return l
}

func (l *List) newBlock(b Block) Ref {
	if n := len(l.spare); n > 0 {
		ref := l.spare[n-1]
		l.spare = l.spare[:n-1]
		l.blocks[ref] = b
		return ref
	}
	l.blocks = append(l.blocks, b)
	return Ref(len(l.blocks) - 1)
}

func (l *List) releaseBlock(ref Ref) {
	l.blocks[ref] = Block{prev: NoRef, next: NoRef}
	l.spare = append(l.spare, ref)
}

func (l *List) addFree(r Range) {
	l.freeBySize.ReplaceOrInsert(freeEntry{size: r.Size(), start: r.Start})
}

func (l *List) removeFree(r Range) {
	l.freeBySize.Delete(freeEntry{size: r.Size(), start: r.Start})
}

// unlink removes ref from the address order and the start index.
func (l *List) unlink(ref Ref) {
	b := l.blocks[ref]
	if b.prev != NoRef {
		l.blocks[b.prev].next = b.next
	} else {
		l.head = b.next
	}
	if b.next != NoRef {
		l.blocks[b.next].prev = b.prev
	}
	l.byStart.Delete(startEntry{start: b.Start})
	l.count--
	l.releaseBlock(ref)
}

// Total is the size of the pool the list partitions.
func (l *List) Total() uint64 {
	return l.total
}

// Len is the number of blocks currently in the list.
func (l *List) Len() int {
	return l.count
}

// Head returns the block at offset 0.
func (l *List) Head() Ref {
	return l.head
}

// Next returns the address-order successor of ref, or NoRef at the end of the pool.
func (l *List) Next(ref Ref) Ref {
	return l.blocks[ref].next
}

// Prev returns the address-order predecessor of ref, or NoRef at the start of the pool.
func (l *List) Prev(ref Ref) Ref {
	return l.blocks[ref].prev
}

// Get returns a copy of the block identified by ref.
func (l *List) Get(ref Ref) Block {
	return l.blocks[ref]
}

// All iterates the blocks in address order.
func (l *List) All() iter.Seq2[Ref, Block] {
	return func(yield func(Ref, Block) bool) {
		for ref := l.head; ref != NoRef; ref = l.blocks[ref].next {
			if !yield(ref, l.blocks[ref]) {
				return
			}
		}
	}
}

// Find returns the block that starts exactly at offset.
func (l *List) Find(offset uint64) (Ref, bool) {
	e, ok := l.byStart.Get(startEntry{start: offset})
	if !ok {
		return NoRef, false
	}
	return e.ref, true
}

// Containing returns the block whose range holds offset. Offsets past the end
// of the pool resolve to the head block.
func (l *List) Containing(offset uint64) Ref {
	if offset >= l.total {
		return l.head
	}
	ref := l.head
	l.byStart.DescendLessOrEqual(startEntry{start: offset}, func(e startEntry) bool {
		ref = e.ref
		return false
	})
	return ref
}

// LargestFree returns the size of the largest free block, or 0 if the pool is
// fully allocated.
func (l *List) LargestFree() uint64 {
	e, ok := l.freeBySize.Max()
	if !ok {
		return 0
	}
	return e.size
}

// Split allocates the first size bytes of the free block ref. If the block is
// larger than size, the remainder becomes a new free block immediately after
// it and is returned as rem; otherwise rem is NoRef.
func (l *List) Split(ref Ref, size uint64) (alloc Ref, rem Ref) {
	b := l.blocks[ref]
	if b.Allocated {
		panic(fmt.Sprintf("blocklist: split of allocated block %v", b.Range))
	}
	if size == 0 || size > b.Size() {
		panic(fmt.Sprintf("blocklist: cannot split %d bytes from block %v", size, b.Range))
	}

	l.removeFree(b.Range)
	if size == b.Size() {
		l.blocks[ref].Allocated = true
		return ref, NoRef
	}

	remainder := Block{
		Range: Range{Start: b.Start + size, End: b.End},
		prev:  ref,
		next:  b.next,
	}
	rem = l.newBlock(remainder)
	if remainder.next != NoRef {
		l.blocks[remainder.next].prev = rem
	}

	// newBlock may have grown the arena, so index again rather than holding a pointer.
	l.blocks[ref].End = b.Start + size
	l.blocks[ref].Allocated = true
	l.blocks[ref].next = rem
	l.count++

	l.byStart.ReplaceOrInsert(startEntry{start: remainder.Start, ref: rem})
	l.addFree(remainder.Range)
	return ref, rem
}

// Coalesce marks the allocated block ref free and merges it with a free
// predecessor and then a free successor. It returns the block that holds the
// freed bytes afterwards.
func (l *List) Coalesce(ref Ref) Ref {
	if !l.blocks[ref].Allocated {
		panic(fmt.Sprintf("blocklist: coalesce of free block %v", l.blocks[ref].Range))
	}
	l.blocks[ref].Allocated = false

	if prev := l.blocks[ref].prev; prev != NoRef && !l.blocks[prev].Allocated {
		l.removeFree(l.blocks[prev].Range)
		l.blocks[prev].Range = l.blocks[prev].Merge(l.blocks[ref].Range)
		l.unlink(ref)
		ref = prev
	}

	if next := l.blocks[ref].next; next != NoRef && !l.blocks[next].Allocated {
		l.removeFree(l.blocks[next].Range)
		l.blocks[ref].Range = l.blocks[ref].Merge(l.blocks[next].Range)
		l.unlink(next)
	}

	l.addFree(l.blocks[ref].Range)
	return ref
}

// Validate walks the list and reports the first broken invariant: gaps,
// overlaps, empty blocks, adjacent free blocks, bad back-links, or indexes
// that disagree with the address order.
func (l *List) Validate() error {
	if l.head == NoRef {
		return fmt.Errorf("list is empty")
	}
	var (
		offset   uint64
		count    int
		free     int
		prev     = NoRef
		prevFree bool
	)
	for ref, b := range l.All() {
		if b.prev != prev {
			return fmt.Errorf("block %v: back-link %d, want %d", b.Range, b.prev, prev)
		}
		if b.Start != offset {
			return fmt.Errorf("block %v: expected start %d", b.Range, offset)
		}
		if b.Size() == 0 {
			return fmt.Errorf("block %v is empty", b.Range)
		}
		if !b.Allocated {
			if prevFree {
				return fmt.Errorf("block %v: adjacent free blocks not coalesced", b.Range)
			}
			if _, ok := l.freeBySize.Get(freeEntry{size: b.Size(), start: b.Start}); !ok {
				return fmt.Errorf("block %v: missing from free index", b.Range)
			}
			free++
		}
		if e, ok := l.byStart.Get(startEntry{start: b.Start}); !ok || e.ref != ref {
			return fmt.Errorf("block %v: start index has ref %d (found %t), want %d", b.Range, e.ref, ok, ref)
		}
		prevFree = !b.Allocated
		prev = ref
		offset = b.End
		count++
	}
	if offset != l.total {
		return fmt.Errorf("blocks cover [0, %d), pool size is %d", offset, l.total)
	}
	if count != l.count {
		return fmt.Errorf("walked %d blocks, list records %d", count, l.count)
	}
	if n := l.byStart.Len(); n != count {
		return fmt.Errorf("start index holds %d entries for %d blocks", n, count)
	}
	if n := l.freeBySize.Len(); n != free {
		return fmt.Errorf("free index holds %d entries for %d free blocks", n, free)
	}
	return nil
}
