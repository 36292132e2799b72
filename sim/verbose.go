package sim

import (
	"fmt"
	"io"
	"strings"
)

// VerboseTracer prints one line per record in the form
// "L 10,1 miss eviction".
type VerboseTracer struct {
	w io.Writer
}

// NewVerboseTracer creates a VerboseTracer writing to w.
func NewVerboseTracer(w io.Writer) *VerboseTracer {
	return &VerboseTracer{w: w}
}

// TraceAccess prints the record and the outcome of each of its accesses.
func (t *VerboseTracer) TraceAccess(event Event) {
	var b strings.Builder

	b.WriteString(event.Record.String())
	for _, r := range event.Results {
		if r.Hit {
			b.WriteString(" hit")
			continue
		}

		b.WriteString(" miss")
		if r.Evicted {
			b.WriteString(" eviction")
		}
	}

	fmt.Fprintln(t.w, b.String())
}

// Finish does nothing; the summary is printed by the caller.
func (t *VerboseTracer) Finish(Summary) {}
