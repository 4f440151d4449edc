// Package vizio renders the pipeline's observability plots: the
// pre-filter depth histogram, the volcano plot of the comparative
// test, a PCA scatter of samples, and a dendrogram of sample
// similarity.
package vizio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// DepthHist renders a histogram of per-sample sequencing depth with a
// vertical line at the filter threshold. The histogram documents the
// filter, it does not drive it.
func DepthHist(sums []float64, threshold float64, path string) error {
	p := plot.New()
	p.Title.Text = "Sequencing depth per sample"
	p.X.Label.Text = "total reads"
	p.Y.Label.Text = "samples"

	vals := make(plotter.Values, len(sums))
	copy(vals, sums)
	h, err := plotter.NewHist(vals, 30)
	if err != nil {
		return err
	}
	p.Add(h)

	_, _, _, ymax := h.DataRange()
	cut := plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: ymax}}
	line, err := plotter.NewLine(cut)
	if err != nil {
		return err
	}
	line.Dashes = plotutil.Dashes(1)
	p.Add(line)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// VolcanoPoint is one taxon on the volcano plot.
type VolcanoPoint struct {
	Beta        float64
	PValue      float64
	Significant bool
}

// Volcano renders fitted beta against -log10(p) with the significant
// taxa in a separate series and a horizontal line at the alpha cutoff.
func Volcano(points []VolcanoPoint, sharedBeta, alpha float64, path string) error {
	p := plot.New()
	p.Title.Text = "EVE beta-shared test"
	p.X.Label.Text = "beta"
	p.Y.Label.Text = "-log10(p)"

	var sig, rest plotter.XYs
	for _, pt := range points {
		xy := plotter.XY{X: pt.Beta, Y: -math.Log10(math.Max(pt.PValue, 1e-300))}
		if pt.Significant {
			sig = append(sig, xy)
		} else {
			rest = append(rest, xy)
		}
	}

	if err := plotutil.AddScatters(p, "significant", sig, "other", rest); err != nil {
		return err
	}

	xmin, xmax := dataRangeX(points, sharedBeta)
	cut := plotter.XYs{
		{X: xmin, Y: -math.Log10(alpha)},
		{X: xmax, Y: -math.Log10(alpha)},
	}
	cutLine, err := plotter.NewLine(cut)
	if err != nil {
		return err
	}
	cutLine.Dashes = plotutil.Dashes(1)
	p.Add(cutLine)

	_, _, _, ymax := cutLine.DataRange()
	for _, pt := range points {
		y := -math.Log10(math.Max(pt.PValue, 1e-300))
		if y > ymax {
			ymax = y
		}
	}
	shared := plotter.XYs{
		{X: sharedBeta, Y: 0},
		{X: sharedBeta, Y: ymax},
	}
	sharedLine, err := plotter.NewLine(shared)
	if err != nil {
		return err
	}
	sharedLine.Dashes = plotutil.Dashes(2)
	p.Add(sharedLine)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func dataRangeX(points []VolcanoPoint, sharedBeta float64) (float64, float64) {
	xmin, xmax := sharedBeta, sharedBeta
	for _, pt := range points {
		if pt.Beta < xmin {
			xmin = pt.Beta
		}
		if pt.Beta > xmax {
			xmax = pt.Beta
		}
	}
	return xmin, xmax
}

// PCAScatter projects the samples onto the first two principal
// components of the log-abundance matrix and renders one series per
// species. The matrix is taxa by samples; samples are the
// observations.
func PCAScatter(m *mat.Dense, species []string, path string) error {
	taxaN, samplesN := m.Dims()
	if samplesN != len(species) {
		return fmt.Errorf(
			"vizio: %d sample columns but %d species labels",
			samplesN, len(species),
		)
	}
	if samplesN < 2 || taxaN < 2 {
		return fmt.Errorf("vizio: too few samples or taxa for PCA")
	}

	obs := mat.DenseCopyOf(m.T())
	var pc stat.PC
	if ok := pc.PrincipalComponents(obs, nil); !ok {
		return fmt.Errorf("vizio: principal component decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	var proj mat.Dense
	proj.Mul(obs, vecs.Slice(0, taxaN, 0, 2))

	bySpecies := make(map[string]plotter.XYs)
	var order []string
	for i, sp := range species {
		if _, ok := bySpecies[sp]; !ok {
			order = append(order, sp)
		}
		bySpecies[sp] = append(bySpecies[sp], plotter.XY{
			X: proj.At(i, 0),
			Y: proj.At(i, 1),
		})
	}

	p := plot.New()
	p.Title.Text = "PCA of log abundance"
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"
	p.Legend.Top = true

	args := make([]interface{}, 0, 2*len(order))
	for _, sp := range order {
		args = append(args, sp, bySpecies[sp])
	}
	if err := plotutil.AddScatters(p, args...); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
