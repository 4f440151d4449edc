package eveio

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/phylomb/evepipe/internal/ent/eve"
	"github.com/phylomb/evepipe/internal/io/vizio"
)

var resultsHeader = []string{
	"TaxonID", "Label", "Beta", "SharedBeta", "LRT", "PValue",
	"Type", "Significant", "Category",
}

// writeResults writes the full result table and the two significant
// subsets.
func (e *eveio) writeResults(sharedBeta float64, results []eve.Result) error {
	all := make([][]string, 0, len(results))
	var ls, hv [][]string
	for _, r := range results {
		row := []string{
			r.TaxonID,
			r.Label,
			strconv.FormatFloat(r.Beta, 'g', -1, 64),
			strconv.FormatFloat(sharedBeta, 'g', -1, 64),
			strconv.FormatFloat(r.LRT, 'g', -1, 64),
			strconv.FormatFloat(r.PValue, 'g', -1, 64),
			string(r.Type),
			strconv.FormatBool(r.Significant),
			r.Category.Category,
		}
		all = append(all, row)
		if r.Significant {
			switch r.Type {
			case eve.LineageSpecific:
				ls = append(ls, row)
			case eve.HighlyVariable:
				hv = append(hv, row)
			}
		}
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{"eve_results.csv", all},
		{"eve_significant_ls.csv", ls},
		{"eve_significant_hv.csv", hv},
	}
	for _, fl := range files {
		if err := e.writeCSV(fl.name, fl.rows); err != nil {
			return err
		}
	}
	slog.Info("Wrote comparative-test results",
		"taxa", len(all),
		"lineageSpecific", len(ls),
		"highlyVariable", len(hv),
	)
	return nil
}

func (e *eveio) writeCSV(fileName string, rows [][]string) error {
	path := filepath.Join(e.cfg.OutDir, fileName)
	f, err := os.Create(path)
	if err != nil {
		slog.Error("Cannot create csv file", "error", err, "path", path)
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write(resultsHeader); err != nil {
		return err
	}
	if err = w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (e *eveio) renderPlots(
	inp eve.Input,
	results []eve.Result,
	sharedBeta float64,
	sampleIDs []string,
) error {
	points := make([]vizio.VolcanoPoint, len(results))
	for i, r := range results {
		points[i] = vizio.VolcanoPoint{
			Beta:        r.Beta,
			PValue:      r.PValue,
			Significant: r.Significant,
		}
	}
	volcanoPath := filepath.Join(e.cfg.OutDir, "volcano.png")
	err := vizio.Volcano(points, sharedBeta, e.cfg.PValThreshold, volcanoPath)
	if err != nil {
		slog.Error("Cannot render volcano plot", "error", err)
		return err
	}

	pcaPath := filepath.Join(e.cfg.OutDir, "pca.png")
	if err = vizio.PCAScatter(inp.Matrix, inp.Species, pcaPath); err != nil {
		slog.Error("Cannot render PCA plot", "error", err)
		return err
	}

	dendroPath := filepath.Join(e.cfg.OutDir, "dendrogram.png")
	if err = vizio.Dendrogram(inp.Matrix, sampleIDs, dendroPath); err != nil {
		slog.Error("Cannot render dendrogram", "error", err)
		return err
	}
	return nil
}
