// Package workload describes sequences of allocator calls, reads them from
// scripts and trace files, and replays them against an allocator.
package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type OpKind uint8

const (
	OpAlloc OpKind = iota + 1
	// OpFree releases the allocation made under the same tag.
	OpFree
	// OpStatus and OpDump ask the replay observer to report the pool state.
	OpStatus
	OpDump
)

var opKindNames = map[OpKind]string{
	OpAlloc:  "alloc",
	OpFree:   "free",
	OpStatus: "status",
	OpDump:   "dump",
}

func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// Op is one step of a workload. Allocations are named by Tag so that later
// frees can refer to them without knowing the address.
type Op struct {
	Kind OpKind
	Tag  string
	Size uint64
}

func (o Op) String() string {
	switch o.Kind {
	case OpAlloc:
		return fmt.Sprintf("alloc %s %d", o.Tag, o.Size)
	case OpFree:
		return "free " + o.Tag
	default:
		return o.Kind.String()
	}
}

// ParseScript reads one op per line:
//
//	alloc <tag> <size>
//	free <tag>
//	status
//	dump
//
// Blank lines and text after '#' are ignored.
func ParseScript(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		op, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	switch fields[0] {
	case "alloc":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("usage: alloc <tag> <size>")
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, fmt.Errorf("alloc %s: bad size %q: %w", fields[1], fields[2], err)
		}
		if size == 0 {
			return Op{}, fmt.Errorf("alloc %s: size must be at least 1", fields[1])
		}
		return Op{Kind: OpAlloc, Tag: fields[1], Size: size}, nil
	case "free":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("usage: free <tag>")
		}
		return Op{Kind: OpFree, Tag: fields[1]}, nil
	case "status", "dump":
		if len(fields) != 1 {
			return Op{}, fmt.Errorf("%s takes no arguments", fields[0])
		}
		if fields[0] == "status" {
			return Op{Kind: OpStatus}, nil
		}
		return Op{Kind: OpDump}, nil
	default:
		return Op{}, fmt.Errorf("unknown op %q", fields[0])
	}
}

// WriteScript writes ops in the format read by ParseScript.
func WriteScript(w io.Writer, ops []Op) error {
	bw := bufio.NewWriter(w)
	for _, op := range ops {
		if _, err := fmt.Fprintln(bw, op.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DemoScript fills a 500 byte pool with five 100 byte blocks and then frees
// the second, fourth and third, reporting the pool after every step.
func DemoScript() []Op {
	var ops []Op
	for _, tag := range []string{"a", "b", "c", "d", "e"} {
		ops = append(ops, Op{Kind: OpAlloc, Tag: tag, Size: 100}, Op{Kind: OpDump}, Op{Kind: OpStatus})
	}
	for _, tag := range []string{"b", "d", "c"} {
		ops = append(ops, Op{Kind: OpFree, Tag: tag}, Op{Kind: OpDump}, Op{Kind: OpStatus})
	}
	return ops
}
