// Package eveio implements the comparative-test pipeline: it loads
// the aligned table written by the prep stage, builds a log-
// transformed taxa-by-samples matrix, validates the fitter
// preconditions, delegates the beta-shared fit, classifies every taxon
// and writes the result tables and plots.
package eveio

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnsys"
	"github.com/phylomb/evepipe/internal/ent/eve"
	"github.com/phylomb/evepipe/internal/ent/kv"
	"github.com/phylomb/evepipe/internal/ent/phylo"
	"github.com/phylomb/evepipe/internal/ent/table"
	"github.com/phylomb/evepipe/pkg/config"
	"gonum.org/v1/gonum/mat"
)

type eveio struct {
	cfg    config.Config
	kv     kv.KeyVal
	fitter eve.Fitter
}

// New returns a new instance of Runner.
func New(cfg config.Config, labelKV kv.KeyVal, fitter eve.Fitter) (eve.Runner, error) {
	res := eveio{cfg: cfg, kv: labelKV, fitter: fitter}
	if err := gnsys.MakeDir(cfg.OutDir); err != nil {
		slog.Error("Cannot create output directory", "error", err)
		return nil, err
	}
	return &res, nil
}

// Run executes the comparative-test pipeline. All fitter
// preconditions are checked before the external routine starts.
func (e *eveio) Run(ctx context.Context) error {
	aligned, err := e.readAligned()
	if err != nil {
		return err
	}

	tree, err := e.readTree()
	if err != nil {
		return err
	}

	err = e.kv.Open()
	if err != nil {
		slog.Error("Cannot open key-value store", "error", err)
		return err
	}
	defer e.kv.Close()

	inp, labels, sampleIDs, err := e.buildInput(aligned, tree)
	if err != nil {
		return err
	}

	if err = eve.Validate(inp); err != nil {
		slog.Error("Fitter precondition failed", "error", err)
		return err
	}
	rows, cols := inp.Matrix.Dims()
	slog.Info("Running beta-shared test",
		"taxa", humanize.Comma(int64(rows)),
		"samples", humanize.Comma(int64(cols)),
	)

	fit, err := e.fitter.Fit(ctx, inp)
	if err != nil {
		return err
	}
	if len(fit.Betas) != rows || len(fit.LRT) != rows {
		err = fmt.Errorf(
			"eveio: fitter returned %d betas and %d LRT values for %d taxa",
			len(fit.Betas), len(fit.LRT), rows,
		)
		slog.Error("Fitter output is inconsistent", "error", err)
		return err
	}

	pvals := eve.PValues(fit.LRT)
	results := make([]eve.Result, rows)
	for i := range results {
		results[i] = eve.Result{
			TaxonID: inp.TaxonIDs[i],
			Label:   labels[i],
			Beta:    fit.Betas[i],
			LRT:     fit.LRT[i],
			PValue:  pvals[i],
			Category: eve.Classify(
				fit.Betas[i], fit.SharedBeta, pvals[i], e.cfg.PValThreshold,
			),
		}
	}

	if err = e.writeResults(fit.SharedBeta, results); err != nil {
		return err
	}
	return e.renderPlots(inp, results, fit.SharedBeta, sampleIDs)
}

func (e *eveio) readAligned() (table.Table, error) {
	path := filepath.Join(e.cfg.OutDir, "aligned.csv")
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Cannot open aligned table, run prep first",
			"error", err, "path", path,
		)
		return table.Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		slog.Error("Cannot read aligned table", "error", err, "path", path)
		return table.Table{}, err
	}
	if len(rows) < 2 {
		return table.Table{}, fmt.Errorf("eveio: aligned table is empty")
	}
	return table.New(rows[0], rows[1:])
}

func (e *eveio) readTree() (*phylo.Tree, error) {
	path := filepath.Join(e.cfg.DataDir, e.cfg.TreeFile)
	bs, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Cannot read tree file", "error", err, "path", path)
		return nil, err
	}
	tree, err := phylo.ParseNewick(string(bs))
	if err != nil {
		slog.Error("Cannot parse tree file", "error", err, "path", path)
		return nil, err
	}
	return tree, nil
}

// buildInput assembles the fitter input from the aligned table. A
// column is a feature column exactly when the prep stage stored a
// label record for it; everything else is metadata.
func (e *eveio) buildInput(
	aligned table.Table,
	tree *phylo.Tree,
) (eve.Input, []string, []string, error) {
	var inp eve.Input

	spIdx := aligned.Col(e.cfg.SpeciesCol)
	if spIdx < 0 {
		return inp, nil, nil, fmt.Errorf(
			"eveio: required column %q is missing", e.cfg.SpeciesCol,
		)
	}
	idIdx := aligned.Col(e.cfg.SampleIDCol)
	if idIdx < 0 {
		return inp, nil, nil, fmt.Errorf(
			"eveio: required column %q is missing", e.cfg.SampleIDCol,
		)
	}

	enc := gnfmt.GNjson{}
	var featIdx []int
	var taxonIDs, labels []string
	for i, h := range aligned.Header {
		bs, err := e.kv.GetValue([]byte(h))
		if err != nil {
			return inp, nil, nil, err
		}
		if bs == nil {
			continue
		}
		var rec kv.LabelRecord
		if err = enc.Decode(bs, &rec); err != nil {
			slog.Error("Cannot decode label record", "error", err, "feature", h)
			return inp, nil, nil, err
		}
		featIdx = append(featIdx, i)
		taxonIDs = append(taxonIDs, rec.TaxonID)
		labels = append(labels, rec.Label)
	}
	if len(featIdx) == 0 {
		return inp, nil, nil, fmt.Errorf(
			"eveio: no feature columns found in the aligned table",
		)
	}

	samplesN := len(aligned.Rows)
	species := make([]string, samplesN)
	sampleIDs := make([]string, samplesN)
	counts := mat.NewDense(len(featIdx), samplesN, nil)
	for j, row := range aligned.Rows {
		species[j] = row[spIdx]
		sampleIDs[j] = row[idIdx]
		for i, col := range featIdx {
			cell := row[col]
			if cell == "" {
				cell = "0"
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return inp, nil, nil, fmt.Errorf(
					"eveio: sample %q: count %q in column %q is not numeric",
					row[idIdx], row[col], aligned.Header[col],
				)
			}
			counts.Set(i, j, v)
		}
	}

	inp = eve.Input{
		Matrix:   eve.LogTransform(counts, e.cfg.Pseudocount),
		TaxonIDs: taxonIDs,
		Species:  species,
		Tree:     tree,
	}
	return inp, labels, sampleIDs, nil
}
