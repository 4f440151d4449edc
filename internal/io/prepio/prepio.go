// Package prepio implements the data-preparation pipeline: it loads
// the counts, metadata and taxonomy CSV files, simplifies taxonomy
// labels, aligns the tables by sample, filters low-depth samples,
// deduplicates, and writes the aligned tables with their audit
// reports.
package prepio

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnsys"
	"github.com/phylomb/evepipe/internal/ent/kv"
	"github.com/phylomb/evepipe/internal/ent/prep"
	"github.com/phylomb/evepipe/internal/ent/table"
	"github.com/phylomb/evepipe/internal/io/vizio"
	"github.com/phylomb/evepipe/pkg/config"
)

// compositeCol is the derived deduplication key column added to the
// aligned table.
const compositeCol = "GenotypeSampleID"

type prepio struct {
	cfg config.Config
	kv  kv.KeyVal
}

// New returns a new instance of Preparer.
func New(cfg config.Config, labelKV kv.KeyVal) (prep.Preparer, error) {
	res := prepio{cfg: cfg, kv: labelKV}
	for _, dir := range []string{cfg.WorkDir, cfg.OutDir} {
		if err := gnsys.MakeDir(dir); err != nil {
			slog.Error("Cannot create directory", "error", err, "dir", dir)
			return nil, err
		}
	}
	return &res, nil
}

// Prepare runs the pipeline stages in order. Schema violations abort;
// join mismatches and duplicates are written to reports before any
// policy is applied to them.
func (p *prepio) Prepare() error {
	counts, meta, taxaTbl, err := p.loadInputs()
	if err != nil {
		return err
	}

	features := colsExcept(counts, p.cfg.SampleIDCol)
	if err = p.checkTaxaCoverage(features, taxaTbl); err != nil {
		slog.Error("Taxonomy does not cover count features", "error", err)
		return err
	}

	labels, err := p.simplifyTaxonomy(taxaTbl)
	if err != nil {
		slog.Error("Cannot simplify taxonomy", "error", err)
		return err
	}
	if err = p.writeCSV("taxonomy_labels.csv", labels); err != nil {
		return err
	}

	merged, rep, err := table.Merge(counts, meta, p.cfg.SampleIDCol)
	if err != nil {
		slog.Error("Cannot merge counts with metadata", "error", err)
		return err
	}
	if err = p.writeJSON("merge_report.json", rep); err != nil {
		return err
	}
	slog.Info("Merged counts and metadata",
		"matched", rep.Matched,
		"onlyInCounts", len(rep.OnlyInLeft),
		"onlyInMetadata", len(rep.OnlyInRight),
	)
	if p.cfg.JoinPolicy == "drop" {
		merged, err = table.DropUnmatched(merged, p.cfg.SampleIDCol, rep)
		if err != nil {
			return err
		}
		slog.Info("Dropped unmatched samples", "count", len(rep.Unmatched()))
	}

	roles := table.Roles{
		ID:        p.cfg.SampleIDCol,
		Meta:      colsExcept(meta, p.cfg.SampleIDCol),
		Abundance: features,
	}
	depth, err := table.FilterDepth(merged, roles, p.cfg.DepthThreshold)
	if err != nil {
		slog.Error("Cannot filter by depth", "error", err)
		return err
	}
	slog.Info("Filtered low-depth samples",
		"threshold", p.cfg.DepthThreshold,
		"kept", len(depth.Kept.Rows),
		"dropped", depth.Excluded,
	)
	histPath := filepath.Join(p.cfg.OutDir, "depth_hist.png")
	if err = vizio.DepthHist(depth.RowSums, float64(p.cfg.DepthThreshold), histPath); err != nil {
		slog.Error("Cannot render depth histogram", "error", err)
		return err
	}

	keyed, err := table.CompositeKey(
		depth.Kept, compositeCol, ".", p.cfg.GenotypeCol, p.cfg.SampleIDCol,
	)
	if err != nil {
		slog.Error("Cannot derive composite key", "error", err)
		return err
	}
	deduped, dupRep, err := table.Dedup(
		keyed, compositeCol, table.DedupPolicy(p.cfg.DedupPolicy),
	)
	if err != nil {
		slog.Error("Cannot deduplicate", "error", err)
		return err
	}
	if err = p.writeJSON("dedup_report.json", dupRep); err != nil {
		return err
	}
	if dupRep.Removed > 0 {
		slog.Warn("Removed duplicated samples",
			"policy", p.cfg.DedupPolicy,
			"removed", dupRep.Removed,
		)
	}

	if err = p.writeCSV("aligned.csv", deduped); err != nil {
		return err
	}
	slog.Info("Wrote aligned table",
		"samples", humanize.Comma(int64(len(deduped.Rows))),
		"features", humanize.Comma(int64(len(features))),
	)
	return nil
}

// checkTaxaCoverage verifies the data-model invariant that every count
// column maps to exactly one taxonomy row.
func (p *prepio) checkTaxaCoverage(features []string, taxaTbl table.Table) error {
	ids, err := taxaTbl.IDs("FeatureID")
	if err != nil {
		return err
	}
	seen := make(map[string]int, len(ids))
	for _, id := range ids {
		seen[id]++
	}
	for _, f := range features {
		switch seen[f] {
		case 0:
			return fmt.Errorf("prepio: feature %q has no taxonomy entry", f)
		case 1:
		default:
			return fmt.Errorf(
				"prepio: feature %q has %d taxonomy entries", f, seen[f],
			)
		}
	}
	return nil
}

// colsExcept returns the table's column names without the named
// column. Column roles are derived from names, never from positions.
func colsExcept(t table.Table, name string) []string {
	var res []string
	for _, h := range t.Header {
		if h != name {
			res = append(res, h)
		}
	}
	return res
}
