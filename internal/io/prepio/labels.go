package prepio

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v2"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
	"github.com/phylomb/evepipe/internal/ent/kv"
	"github.com/phylomb/evepipe/internal/ent/table"
	"github.com/phylomb/evepipe/internal/ent/taxa"
	"golang.org/x/sync/errgroup"
)

// labeledTaxon is one taxonomy row after simplification.
type labeledTaxon struct {
	taxonID    string
	featureID  string
	label      taxa.Label
	confidence float64
}

// simplifyTaxonomy turns full classification strings into short labels
// concurrently and persists featureID to label records in the
// key-value store for the test stage. Malformed classification
// strings are recoverable: they become "unclassified" and are counted.
func (p *prepio) simplifyTaxonomy(taxaTbl table.Table) (table.Table, error) {
	slog.Info("Simplifying taxonomy labels", "features", len(taxaTbl.Rows))

	err := p.kv.Open()
	if err != nil {
		slog.Error("Cannot open key-value store", "error", err)
		return table.Table{}, err
	}
	defer p.kv.Close()

	idIdx := taxaTbl.Col("FeatureID")
	taxonIdx := taxaTbl.Col("Taxon")
	confIdx := taxaTbl.Col("Confidence")

	chIn := make(chan []string)
	chOut := make(chan labeledTaxon)
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chIn)
		for _, row := range taxaTbl.Rows {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case chIn <- row:
			}
		}
		return nil
	})

	for i := 0; i < p.cfg.JobsNum; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return p.workerLabel(ctx, idIdx, taxonIdx, confIdx, chIn, chOut)
		})
	}

	var out table.Table
	var unclassified int
	g.Go(func() error {
		out, unclassified, err = p.collectLabels(ctx, chOut)
		return err
	})

	go func() {
		wg.Wait()
		close(chOut)
	}()

	if err := g.Wait(); err != nil {
		slog.Error("error in goroutines", "error", err)
		return table.Table{}, err
	}

	// workers return rows in arbitrary order
	sort.Slice(out.Rows, func(i, j int) bool {
		return out.Rows[i][1] < out.Rows[j][1]
	})

	if unclassified > 0 {
		slog.Warn("Some features could not be classified",
			"unclassified", unclassified,
		)
	}
	slog.Info("Simplified taxonomy labels",
		"labels", humanize.Comma(int64(len(out.Rows))),
	)
	return out, nil
}

func (p *prepio) workerLabel(
	ctx context.Context,
	idIdx, taxonIdx, confIdx int,
	chIn <-chan []string,
	chOut chan<- labeledTaxon,
) error {
	smp := taxa.NewSimplifier(p.cfg.ConfThreshold)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case row, ok := <-chIn:
			if !ok {
				return nil
			}
			conf, err := strconv.ParseFloat(strings.TrimSpace(row[confIdx]), 64)
			if err != nil {
				return fmt.Errorf(
					"prepio: feature %q: confidence %q is not numeric",
					row[idIdx], row[confIdx],
				)
			}
			lt := labeledTaxon{
				taxonID:    gnuuid.New(row[idIdx]).String(),
				featureID:  row[idIdx],
				label:      smp.Simplify(row[taxonIdx], conf),
				confidence: conf,
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case chOut <- lt:
			}
		}
	}
}

// collectLabels owns the badger transaction and the output table.
func (p *prepio) collectLabels(
	ctx context.Context,
	chOut <-chan labeledTaxon,
) (table.Table, int, error) {
	res := table.Table{
		Header: []string{"TaxonID", "FeatureID", "Label", "Rank", "Confidence"},
	}
	var unclassified int

	enc := gnfmt.GNjson{}
	kvTxn, err := p.kv.GetTransaction()
	if err != nil {
		slog.Error("Cannot make key-val transaction", "error", err)
		return res, 0, err
	}

	for {
		select {
		case <-ctx.Done():
			return res, unclassified, ctx.Err()
		case lt, ok := <-chOut:
			if !ok {
				if err = kvTxn.Commit(); err != nil {
					slog.Error("Cannot commit key/value transaction", "error", err)
					return res, unclassified, err
				}
				return res, unclassified, nil
			}
			if lt.label.Unclassified {
				unclassified++
			}
			kvTxn, err = p.saveLabelKV(enc, lt, kvTxn)
			if err != nil {
				return res, unclassified, err
			}
			res.Rows = append(res.Rows, []string{
				lt.taxonID,
				lt.featureID,
				lt.label.Value,
				lt.label.Rank,
				strconv.FormatFloat(lt.confidence, 'f', -1, 64),
			})
		}
	}
}

func (p *prepio) saveLabelKV(
	enc gnfmt.Encoder,
	lt labeledTaxon,
	kvTxn *badger.Txn,
) (*badger.Txn, error) {
	rec := kv.LabelRecord{
		TaxonID: lt.taxonID,
		Label:   lt.label.Value,
		Rank:    lt.label.Rank,
	}
	valBytes, err := enc.Encode(rec)
	if err != nil {
		slog.Error("Cannot encode label record", "error", err)
		return kvTxn, err
	}
	key := []byte(lt.featureID)
	if err = kvTxn.Set(key, valBytes); err == badger.ErrTxnTooBig {
		if err = kvTxn.Commit(); err != nil {
			slog.Error("Cannot commit key/value transaction", "error", err)
			return kvTxn, err
		}
		kvTxn, err = p.kv.GetTransaction()
		if err != nil {
			slog.Error("Cannot recreate key-val transaction", "error", err)
			return kvTxn, err
		}
		if err = kvTxn.Set(key, valBytes); err != nil {
			slog.Error("Cannot set key/value", "error", err)
			return kvTxn, err
		}
	} else if err != nil {
		slog.Error("Cannot set key/value", "error", err)
		return kvTxn, err
	}
	return kvTxn, nil
}
