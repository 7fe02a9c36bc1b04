// Package dataset loads the question table an experiment is run against.
//
// The table is a CSV file with a header row. Three columns are used: the
// question sent to the model, the expected answer and a question id. Other
// columns are ignored. Cells are kept as raw strings; typing happens when
// the analysis coerces them.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Columns names the header cells to read.
type Columns struct {
	Question string
	Answer   string
	ID       string
}

// DefaultColumns returns the standard column names.
func DefaultColumns() Columns {
	return Columns{Question: "Question", Answer: "Answer", ID: "ID"}
}

// ErrMissingColumn is returned when the header lacks a requested column.
var ErrMissingColumn = errors.New("missing column")

// Table is a loaded dataset. It satisfies analysis.GroundTruth.
type Table struct {
	questions []string
	answers   []string
	ids       []string
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.questions) }

// Answer returns the expected answer of row i.
func (t *Table) Answer(i int) string { return t.answers[i] }

// ID returns the question id of row i.
func (t *Table) ID(i int) string { return t.ids[i] }

// Questions returns a copy of every question in row order.
func (t *Table) Questions() []string {
	return append([]string(nil), t.questions...)
}

// Load reads a CSV dataset from path.
func Load(path string, cols Columns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	t, err := Read(f, cols)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return t, nil
}

// Read parses a CSV dataset from r.
func Read(r io.Reader, cols Columns) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file, expected a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	pos := [3]int{}
	for i, name := range []string{cols.Question, cols.Answer, cols.ID} {
		p, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		pos[i] = p
	}

	t := &Table{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		for i, p := range pos {
			if p >= len(row) {
				name := []string{cols.Question, cols.Answer, cols.ID}[i]
				return nil, fmt.Errorf("line %d: %w %q (row has %d fields)", line, ErrMissingColumn, name, len(row))
			}
		}
		t.questions = append(t.questions, row[pos[0]])
		t.answers = append(t.answers, row[pos[1]])
		t.ids = append(t.ids, row[pos[2]])
	}
	return t, nil
}
