package vizio_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/phylomb/evepipe/internal/io/vizio"
)

var _ = Describe("Vizio", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "vizio")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	rendered := func(name string) {
		info, err := os.Stat(filepath.Join(dir, name))
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Size()).To(BeNumerically(">", 0))
	}

	It("renders a depth histogram with a threshold line", func() {
		sums := []float64{100, 2000, 5141, 8000, 12000, 300}
		path := filepath.Join(dir, "hist.png")
		Expect(vizio.DepthHist(sums, 5141, path)).To(Succeed())
		rendered("hist.png")
	})

	It("renders a volcano plot", func() {
		points := []vizio.VolcanoPoint{
			{Beta: 1.0, PValue: 0.05, Significant: true},
			{Beta: 3.0, PValue: 0.5},
			{Beta: 2.5, PValue: 0.09, Significant: true},
		}
		path := filepath.Join(dir, "volcano.png")
		Expect(vizio.Volcano(points, 2.0, 0.1, path)).To(Succeed())
		rendered("volcano.png")
	})

	It("renders a PCA scatter grouping samples by species", func() {
		m := mat.NewDense(3, 4, []float64{
			1, 1.1, 5, 5.2,
			0, 0.2, 3, 3.1,
			2, 2.1, 0, 0.1,
		})
		species := []string{"A", "A", "B", "B"}
		path := filepath.Join(dir, "pca.png")
		Expect(vizio.PCAScatter(m, species, path)).To(Succeed())
		rendered("pca.png")
	})

	It("rejects mismatched species labels for PCA", func() {
		m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
		err := vizio.PCAScatter(m, []string{"A"}, filepath.Join(dir, "x.png"))
		Expect(err).To(HaveOccurred())
	})

	It("renders a dendrogram of sample similarity", func() {
		m := mat.NewDense(3, 4, []float64{
			1, 1.1, 5, 5.2,
			0, 0.2, 3, 3.1,
			2, 2.1, 0, 0.1,
		})
		labels := []string{"S1", "S2", "S3", "S4"}
		path := filepath.Join(dir, "dendro.png")
		Expect(vizio.Dendrogram(m, labels, path)).To(Succeed())
		rendered("dendro.png")
	})
})
