package allocator

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Dump writes a table with one row per block in address order.
func (a *Allocator) Dump(w io.Writer) {
	a.mustInit()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Addr", "Size", "State"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	i := 0
	for _, b := range a.blocks.All() {
		state := "free"
		if b.Allocated {
			state = "allocated"
		}
		table.Append([]string{
			strconv.Itoa(i),
			fmt.Sprintf("%#x", uint64(a.addr(b.Start))),
			strconv.FormatUint(b.Size(), 10),
			state,
		})
		i++
	}
	table.Render()
}

// WriteStatus writes a short human readable summary of pool usage.
func (a *Allocator) WriteStatus(w io.Writer) error {
	s := a.Stats()
	_, err := fmt.Fprintf(w,
		"%d out of %d bytes allocated.\n"+
			"%d bytes are free in %d holes; maximum allocatable block is %d bytes.\n"+
			"Average hole size is %.2f.\n",
		s.Allocated, s.Total, s.Free, s.Holes, s.LargestFree, s.AverageHole())
	return err
}
