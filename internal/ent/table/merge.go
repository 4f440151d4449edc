package table

import "fmt"

// MergeReport audits an outer join before any row is discarded. Every
// identifier that failed to match, and every duplicated identifier, is
// enumerable by the caller.
type MergeReport struct {
	// OnlyInLeft are key values present in the left table only.
	OnlyInLeft []string

	// OnlyInRight are key values present in the right table only.
	OnlyInRight []string

	// DupsLeft and DupsRight list key values that repeat within one
	// table. Repeated keys are a data-quality defect; the merge keeps
	// them all and leaves resolution to an explicit dedup step.
	DupsLeft  []string
	DupsRight []string

	// Matched is the number of key values present in both tables.
	Matched int
}

// Unmatched returns the symmetric difference of the two key sets.
func (r MergeReport) Unmatched() []string {
	res := make([]string, 0, len(r.OnlyInLeft)+len(r.OnlyInRight))
	res = append(res, r.OnlyInLeft...)
	res = append(res, r.OnlyInRight...)
	return res
}

// Merge outer-joins two tables on a shared key column. The result
// contains one row per (left row, matching right row) pair, plus one
// row for every unmatched row of either side with the other side's
// cells left empty. No row is lost silently: the report enumerates
// every unmatched and duplicated key, and the caller decides whether
// unmatched rows are kept or dropped.
func Merge(left, right Table, key string) (Table, MergeReport, error) {
	var rep MergeReport
	lk := left.Col(key)
	rk := right.Col(key)
	if lk < 0 || rk < 0 {
		return Table{}, rep, fmt.Errorf(
			"table: merge key %q is missing from one of the tables", key,
		)
	}

	header := make([]string, 0, len(left.Header)+len(right.Header)-1)
	header = append(header, left.Header...)
	for i, h := range right.Header {
		if i != rk {
			header = append(header, h)
		}
	}

	rightByKey := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		k := row[rk]
		rightByKey[k] = append(rightByKey[k], i)
		if len(rightByKey[k]) == 2 {
			rep.DupsRight = append(rep.DupsRight, k)
		}
	}

	leftSeen := make(map[string]int, len(left.Rows))
	matchedRight := make(map[string]struct{}, len(right.Rows))
	var rows [][]string

	for _, lrow := range left.Rows {
		k := lrow[lk]
		leftSeen[k]++
		if leftSeen[k] == 2 {
			rep.DupsLeft = append(rep.DupsLeft, k)
		}
		rIdxs, ok := rightByKey[k]
		if !ok {
			row := make([]string, 0, len(header))
			row = append(row, lrow...)
			for range right.Header {
				if len(row) < len(header) {
					row = append(row, "")
				}
			}
			rows = append(rows, row)
			continue
		}
		matchedRight[k] = struct{}{}
		for _, ri := range rIdxs {
			row := make([]string, 0, len(header))
			row = append(row, lrow...)
			for j, cell := range right.Rows[ri] {
				if j != rk {
					row = append(row, cell)
				}
			}
			rows = append(rows, row)
		}
	}

	for k := range leftSeen {
		if _, ok := rightByKey[k]; !ok {
			rep.OnlyInLeft = append(rep.OnlyInLeft, k)
		} else {
			rep.Matched++
		}
	}

	// unmatched right rows keep their cells, left side stays empty
	for _, rrow := range right.Rows {
		k := rrow[rk]
		if _, ok := leftSeen[k]; ok {
			continue
		}
		row := make([]string, len(header))
		row[lk] = k
		pos := len(left.Header)
		for j, cell := range rrow {
			if j != rk {
				row[pos] = cell
				pos++
			}
		}
		rows = append(rows, row)
		if _, ok := matchedRight[k]; !ok {
			matchedRight[k] = struct{}{}
			rep.OnlyInRight = append(rep.OnlyInRight, k)
		}
	}

	res, err := New(header, rows)
	if err != nil {
		return res, rep, err
	}
	return res, rep, nil
}

// DropUnmatched removes rows whose key appears in the unmatched list of
// a merge report. It implements the "drop" join policy.
func DropUnmatched(t Table, key string, rep MergeReport) (Table, error) {
	idx := t.Col(key)
	if idx < 0 {
		return t, fmt.Errorf("table: required column %q is missing", key)
	}
	un := make(map[string]struct{}, len(rep.OnlyInLeft)+len(rep.OnlyInRight))
	for _, k := range rep.Unmatched() {
		un[k] = struct{}{}
	}
	res := Table{Header: t.Header}
	for _, row := range t.Rows {
		if _, ok := un[row[idx]]; !ok {
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}
