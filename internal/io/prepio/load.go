package prepio

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gnames/gnfmt"
	"github.com/phylomb/evepipe/internal/ent/table"
)

func (p *prepio) loadInputs() (counts, meta, taxaTbl table.Table, err error) {
	counts, err = p.readCSV(p.cfg.CountsFile)
	if err != nil {
		return counts, meta, taxaTbl, err
	}
	meta, err = p.readCSV(p.cfg.MetaFile)
	if err != nil {
		return counts, meta, taxaTbl, err
	}
	taxaTbl, err = p.readCSV(p.cfg.TaxaFile)
	if err != nil {
		return counts, meta, taxaTbl, err
	}

	if err = counts.Validate(table.Roles{ID: p.cfg.SampleIDCol}); err != nil {
		slog.Error("Counts table failed schema check", "error", err)
		return counts, meta, taxaTbl, err
	}
	metaRoles := table.Roles{
		ID:   p.cfg.SampleIDCol,
		Meta: []string{p.cfg.GenotypeCol, p.cfg.SpeciesCol},
	}
	if err = meta.Validate(metaRoles); err != nil {
		slog.Error("Metadata table failed schema check", "error", err)
		return counts, meta, taxaTbl, err
	}
	taxaRoles := table.Roles{
		ID:   "FeatureID",
		Meta: []string{"Taxon", "Confidence"},
	}
	if err = taxaTbl.Validate(taxaRoles); err != nil {
		slog.Error("Taxonomy table failed schema check", "error", err)
		return counts, meta, taxaTbl, err
	}
	return counts, meta, taxaTbl, nil
}

func (p *prepio) readCSV(fileName string) (table.Table, error) {
	path := filepath.Join(p.cfg.DataDir, fileName)
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Cannot open csv file", "error", err, "path", path)
		return table.Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		slog.Error("Cannot read csv file", "error", err, "path", path)
		return table.Table{}, err
	}
	if len(rows) == 0 {
		return table.New(nil, nil)
	}
	return table.New(rows[0], rows[1:])
}

func (p *prepio) writeCSV(fileName string, t table.Table) error {
	path := filepath.Join(p.cfg.OutDir, fileName)
	f, err := os.Create(path)
	if err != nil {
		slog.Error("Cannot create csv file", "error", err, "path", path)
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write(t.Header); err != nil {
		return err
	}
	if err = w.WriteAll(t.Rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (p *prepio) writeJSON(fileName string, v interface{}) error {
	enc := gnfmt.GNjson{Pretty: true}
	bs, err := enc.Encode(v)
	if err != nil {
		slog.Error("Cannot encode report", "error", err, "file", fileName)
		return err
	}
	path := filepath.Join(p.cfg.OutDir, fileName)
	if err = os.WriteFile(path, bs, 0644); err != nil {
		slog.Error("Cannot write report", "error", err, "path", path)
		return err
	}
	return nil
}
