package eveio_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/gnames/gnfmt"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/phylomb/evepipe/internal/ent/eve"
	"github.com/phylomb/evepipe/internal/ent/kv"
	"github.com/phylomb/evepipe/internal/io/eveio"
	"github.com/phylomb/evepipe/internal/io/kvio"
	"github.com/phylomb/evepipe/pkg/config"
)

const alignedCSV = `SampleID,ASV1,ASV2,Genotype,Species,GenotypeSampleID
S1,5,0,wt,Homo_sapiens,wt.S1
S2,10,20,wt,Homo_sapiens,wt.S2
S3,300,400,wt,Pan_troglodytes,wt.S3
S4,250,380,ko,Pan_troglodytes,ko.S4
`

const treeNewick = "(Homo_sapiens:0.1,Pan_troglodytes:0.2);\n"

// fixedFitter returns a canned fit: ASV1 is a significant
// lineage-specific taxon, ASV2 is an insignificant highly variable
// one.
type fixedFitter struct {
	gotInput *eve.Input
}

func (f *fixedFitter) Fit(_ context.Context, inp eve.Input) (eve.FitResult, error) {
	f.gotInput = &inp
	return eve.FitResult{
		SharedBeta: 2.0,
		Betas:      []float64{1.0, 3.0},
		LRT:        []float64{5.0, 0.2},
	}, nil
}

// shortFitter returns one taxon less than it was given.
type shortFitter struct{}

func (f *shortFitter) Fit(_ context.Context, _ eve.Input) (eve.FitResult, error) {
	return eve.FitResult{
		SharedBeta: 2.0,
		Betas:      []float64{1.0},
		LRT:        []float64{5.0},
	}, nil
}

var _ = Describe("Runner", func() {
	var root string
	var cfg config.Config
	var fitter *fixedFitter

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "eveio")
		Expect(err).ToNot(HaveOccurred())

		dataDir := filepath.Join(root, "data")
		outDir := filepath.Join(root, "out")
		Expect(os.MkdirAll(dataDir, 0755)).To(Succeed())
		Expect(os.MkdirAll(outDir, 0755)).To(Succeed())

		err = os.WriteFile(
			filepath.Join(outDir, "aligned.csv"), []byte(alignedCSV), 0644,
		)
		Expect(err).ToNot(HaveOccurred())
		err = os.WriteFile(
			filepath.Join(dataDir, "species.nwk"), []byte(treeNewick), 0644,
		)
		Expect(err).ToNot(HaveOccurred())

		cfg = config.New(
			config.OptDataDir(dataDir),
			config.OptWorkDir(filepath.Join(root, "work")),
			config.OptOutDir(outDir),
		)

		seedLabels(cfg)
		fitter = &fixedFitter{}
	})

	AfterEach(func() {
		os.RemoveAll(root)
	})

	run := func() error {
		labelKV, err := kvio.New(cfg.LabelKVDir, false)
		Expect(err).ToNot(HaveOccurred())
		r, err := eveio.New(cfg, labelKV, fitter)
		Expect(err).ToNot(HaveOccurred())
		return r.Run(context.Background())
	}

	It("classifies taxa and writes the result tables", func() {
		Expect(run()).To(Succeed())

		rows := readOut(cfg, "eve_results.csv")
		Expect(rows).To(HaveLen(3))
		Expect(rows[0]).To(Equal([]string{
			"TaxonID", "Label", "Beta", "SharedBeta", "LRT", "PValue",
			"Type", "Significant", "Category",
		}))

		asv1 := rows[1]
		Expect(asv1[1]).To(Equal("Lactobacillus iners"))
		Expect(asv1[6]).To(Equal("lineage-specific"))
		Expect(asv1[7]).To(Equal("true"))
		Expect(asv1[8]).To(Equal("lineage-specific"))

		asv2 := rows[2]
		Expect(asv2[1]).To(Equal("Prevotella"))
		Expect(asv2[6]).To(Equal("highly variable"))
		Expect(asv2[7]).To(Equal("false"))
		Expect(asv2[8]).To(Equal("not significant"))

		ls := readOut(cfg, "eve_significant_ls.csv")
		Expect(ls).To(HaveLen(2))
		hv := readOut(cfg, "eve_significant_hv.csv")
		Expect(hv).To(HaveLen(1))
	})

	It("hands the fitter a log-transformed matrix in column order", func() {
		Expect(run()).To(Succeed())
		Expect(fitter.gotInput).ToNot(BeNil())

		inp := *fitter.gotInput
		rows, cols := inp.Matrix.Dims()
		Expect(rows).To(Equal(2))
		Expect(cols).To(Equal(4))
		Expect(inp.Species).To(Equal([]string{
			"Homo_sapiens", "Homo_sapiens",
			"Pan_troglodytes", "Pan_troglodytes",
		}))
		// ln(5 + 1) for S1 x ASV1
		Expect(inp.Matrix.At(0, 0)).To(BeNumerically("~", 1.7917, 1e-4))
		// ln(0 + 1) for S1 x ASV2
		Expect(inp.Matrix.At(1, 0)).To(Equal(0.0))
	})

	It("renders the volcano, PCA and dendrogram plots", func() {
		Expect(run()).To(Succeed())
		for _, f := range []string{"volcano.png", "pca.png", "dendrogram.png"} {
			info, err := os.Stat(filepath.Join(cfg.OutDir, f))
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Size()).To(BeNumerically(">", 0))
		}
	})

	It("rejects a fitter output covering fewer taxa than the input", func() {
		labelKV, err := kvio.New(cfg.LabelKVDir, false)
		Expect(err).ToNot(HaveOccurred())
		r, err := eveio.New(cfg, labelKV, &shortFitter{})
		Expect(err).ToNot(HaveOccurred())

		err = r.Run(context.Background())
		Expect(err).To(MatchError(ContainSubstring("for 2 taxa")))
	})

	It("fails eagerly when a species is missing from the tree", func() {
		err := os.WriteFile(
			filepath.Join(cfg.DataDir, "species.nwk"),
			[]byte("(Homo_sapiens:0.1,Mus_musculus:0.2);\n"), 0644,
		)
		Expect(err).ToNot(HaveOccurred())

		err = run()
		Expect(err).To(MatchError(ContainSubstring("Pan_troglodytes")))
		Expect(fitter.gotInput).To(BeNil())
	})
})

// seedLabels stores the label records the prep stage would have
// written.
func seedLabels(cfg config.Config) {
	labelKV, err := kvio.New(cfg.LabelKVDir, true)
	Expect(err).ToNot(HaveOccurred())
	Expect(labelKV.Open()).To(Succeed())
	defer labelKV.Close()

	enc := gnfmt.GNjson{}
	txn, err := labelKV.GetTransaction()
	Expect(err).ToNot(HaveOccurred())

	recs := map[string]kv.LabelRecord{
		"ASV1": {TaxonID: "t1", Label: "Lactobacillus iners", Rank: "s"},
		"ASV2": {TaxonID: "t2", Label: "Prevotella", Rank: "g"},
	}
	for key, rec := range recs {
		bs, err := enc.Encode(rec)
		Expect(err).ToNot(HaveOccurred())
		Expect(txn.Set([]byte(key), bs)).To(Succeed())
	}
	Expect(txn.Commit()).To(Succeed())
}

func readOut(cfg config.Config, name string) [][]string {
	f, err := os.Open(filepath.Join(cfg.OutDir, name))
	Expect(err).ToNot(HaveOccurred())
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	Expect(err).ToNot(HaveOccurred())
	return rows
}
