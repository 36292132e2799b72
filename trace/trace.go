// Package trace reads memory access traces in the valgrind lackey format:
//
//	I 0400d7d4,8
//	 M 0421c7f0,4
//	 L 04f6b868,8
//	 S 7ff0005c8,8
//
// Each record is an operation, a hexadecimal address, and a hexadecimal
// access size. Instruction fetches (I) are skipped by the Reader.
package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is the kind of a trace record.
type Op uint8

// Trace operations.
const (
	Instruction Op = iota
	Load
	Store
	Modify
)

// ParseOp maps a trace operation letter to its Op.
func ParseOp(c byte) (Op, error) {
	switch c {
	case 'I':
		return Instruction, nil
	case 'L':
		return Load, nil
	case 'S':
		return Store, nil
	case 'M':
		return Modify, nil
	}

	return 0, fmt.Errorf("unknown operation %q", c)
}

func (o Op) String() string {
	switch o {
	case Instruction:
		return "I"
	case Load:
		return "L"
	case Store:
		return "S"
	case Modify:
		return "M"
	}

	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Record is one memory access.
type Record struct {
	Op   Op
	Addr uint64
	Size uint64
}

func (r Record) String() string {
	return fmt.Sprintf("%s %x,%x", r.Op, r.Addr, r.Size)
}

// ParseError reports a malformed trace line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses a single trace record. Leading and trailing whitespace is
// ignored.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || len(fields[0]) != 1 {
		return Record{}, fmt.Errorf("expected \"<op> <addr>,<size>\"")
	}

	op, err := ParseOp(fields[0][0])
	if err != nil {
		return Record{}, err
	}

	addrText, sizeText, ok := strings.Cut(fields[1], ",")
	if !ok {
		return Record{}, fmt.Errorf("missing access size")
	}

	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad address: %w", err)
	}

	size, err := strconv.ParseUint(sizeText, 16, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad access size: %w", err)
	}

	return Record{Op: op, Addr: addr, Size: size}, nil
}
