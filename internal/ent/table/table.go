package table

import (
	"fmt"
	"strconv"
)

// Table is an in-memory rectangular table read from a CSV file.
// Header names are unique, every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Roles declares which columns carry which kind of data. Positional
// slicing of count columns is a known source of silent misalignment,
// so roles are named and validated at load time instead.
type Roles struct {
	// ID is the name of the sample identifier column.
	ID string

	// Meta is the list of metadata column names.
	Meta []string

	// Abundance is the list of feature-count column names.
	Abundance []string
}

// New creates a Table and validates its shape: a unique header and
// rectangular rows.
func New(header []string, rows [][]string) (Table, error) {
	t := Table{Header: header, Rows: rows}
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		if _, ok := seen[h]; ok {
			return t, fmt.Errorf("table: duplicate column %q", h)
		}
		seen[h] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return t, fmt.Errorf(
				"table: row %d has %d cells, header has %d",
				i, len(row), len(header),
			)
		}
	}
	return t, nil
}

// Col returns the index of a column, or -1 when it is absent.
func (t Table) Col(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Validate checks that every column the roles name exists in the table.
// A missing role column is a schema violation and aborts the pipeline.
func (t Table) Validate(r Roles) error {
	cols := []string{r.ID}
	cols = append(cols, r.Meta...)
	cols = append(cols, r.Abundance...)
	for _, c := range cols {
		if c == "" {
			return fmt.Errorf("table: empty column name in roles")
		}
		if t.Col(c) < 0 {
			return fmt.Errorf("table: required column %q is missing", c)
		}
	}
	return nil
}

// IDs returns the values of the key column in row order.
func (t Table) IDs(key string) ([]string, error) {
	idx := t.Col(key)
	if idx < 0 {
		return nil, fmt.Errorf("table: required column %q is missing", key)
	}
	res := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		res[i] = row[idx]
	}
	return res, nil
}

// DepthResult carries the outcome of a depth filter together with the
// pre-filter depth of every sample. Depths are an observability
// artifact (histogram input), never a control input.
type DepthResult struct {
	Kept     Table
	Depths   map[string]float64
	Dropped  []string
	RowSums  []float64
	Excluded int
}

// FilterDepth retains the rows whose total count across the abundance
// columns exceeds threshold. The predicate is strict: a row whose sum
// equals the threshold is excluded. Column alignment is unchanged.
func FilterDepth(t Table, r Roles, threshold int) (DepthResult, error) {
	if err := t.Validate(r); err != nil {
		return DepthResult{}, err
	}
	idIdx := t.Col(r.ID)
	abIdx := make([]int, len(r.Abundance))
	for i, c := range r.Abundance {
		abIdx[i] = t.Col(c)
	}

	res := DepthResult{
		Kept:    Table{Header: t.Header},
		Depths:  make(map[string]float64, len(t.Rows)),
		RowSums: make([]float64, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		var sum float64
		for _, j := range abIdx {
			// empty cells come from kept unmatched rows of an outer join
			if row[j] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return res, fmt.Errorf(
					"table: sample %q: count %q in column %q is not numeric",
					row[idIdx], row[j], t.Header[j],
				)
			}
			sum += v
		}
		res.Depths[row[idIdx]] = sum
		res.RowSums = append(res.RowSums, sum)
		if sum > float64(threshold) {
			res.Kept.Rows = append(res.Kept.Rows, row)
		} else {
			res.Dropped = append(res.Dropped, row[idIdx])
			res.Excluded++
		}
	}
	return res, nil
}
