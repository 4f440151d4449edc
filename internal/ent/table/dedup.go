package table

import "fmt"

// DedupPolicy selects which of several rows sharing a key survives
// deduplication. What distinguishes a genuine duplicate from a
// legitimately re-sampled individual is a project decision, so the
// policy is configuration, never a hard-coded rule.
type DedupPolicy string

const (
	// DedupFirst keeps the first occurrence in current row order.
	DedupFirst DedupPolicy = "first"

	// DedupLast keeps the last occurrence in current row order.
	DedupLast DedupPolicy = "last"
)

// DedupReport enumerates the keys that had more than one row before
// deduplication, with their occurrence counts.
type DedupReport struct {
	Duplicates map[string]int
	Removed    int
}

// Dedup retains exactly one row per key value, deterministically,
// according to policy. Row order of survivors follows the input order.
// The operation is idempotent: a table with unique keys passes through
// unchanged.
func Dedup(t Table, key string, policy DedupPolicy) (Table, DedupReport, error) {
	rep := DedupReport{Duplicates: make(map[string]int)}
	idx := t.Col(key)
	if idx < 0 {
		return t, rep, fmt.Errorf("table: required column %q is missing", key)
	}
	switch policy {
	case DedupFirst, DedupLast:
	default:
		return t, rep, fmt.Errorf("table: unknown dedup policy %q", policy)
	}

	counts := make(map[string]int, len(t.Rows))
	for _, row := range t.Rows {
		counts[row[idx]]++
	}
	for k, n := range counts {
		if n > 1 {
			rep.Duplicates[k] = n
			rep.Removed += n - 1
		}
	}

	res := Table{Header: t.Header}
	if policy == DedupFirst {
		seen := make(map[string]struct{}, len(counts))
		for _, row := range t.Rows {
			k := row[idx]
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			res.Rows = append(res.Rows, row)
		}
		return res, rep, nil
	}

	// last-wins: remember the index of the final occurrence per key,
	// then keep rows whose index is that final occurrence.
	last := make(map[string]int, len(counts))
	for i, row := range t.Rows {
		last[row[idx]] = i
	}
	for i, row := range t.Rows {
		if last[row[idx]] == i {
			res.Rows = append(res.Rows, row)
		}
	}
	return res, rep, nil
}

// CompositeKey appends a derived key column built by joining the named
// columns with a separator. Re-genotyped samples share a sample ID but
// differ in genotype, so genotype+sample is the deduplication key.
func CompositeKey(t Table, name, sep string, cols ...string) (Table, error) {
	idxs := make([]int, len(cols))
	for i, c := range cols {
		idx := t.Col(c)
		if idx < 0 {
			return t, fmt.Errorf("table: required column %q is missing", c)
		}
		idxs[i] = idx
	}
	if t.Col(name) >= 0 {
		return t, fmt.Errorf("table: column %q already exists", name)
	}
	res := Table{Header: append(append([]string{}, t.Header...), name)}
	for _, row := range t.Rows {
		key := ""
		for i, idx := range idxs {
			if i > 0 {
				key += sep
			}
			key += row[idx]
		}
		res.Rows = append(res.Rows, append(append([]string{}, row...), key))
	}
	return res, nil
}
