package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reader yields the data access records of a trace. Blank lines, lines
// starting with '#', and instruction fetches are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Open opens the trace file at path. The caller must close the returned
// closer once done reading.
func Open(path string) (*Reader, io.Closer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return NewReader(file), file, nil
}

// Line returns the number of the last line read, starting at 1.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next data access record. It returns io.EOF when the
// trace is exhausted and a *ParseError for a malformed line.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()

		trimmed := strings.TrimSpace(text)
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == 'I' {
			continue
		}

		rec, err := ParseLine(trimmed)
		if err != nil {
			return Record{}, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read trace: %w", err)
	}

	return Record{}, io.EOF
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}

		records = append(records, rec)
	}
}
