// Package eve defines the contract of the Expression Variance and
// Evolution beta-shared test: the input the external fitter expects,
// the eager precondition checks, and the post-processing of its
// likelihood-ratio statistics. The maximum-likelihood fit itself is an
// opaque external routine.
package eve

import (
	"context"
	"fmt"
	"math"

	"github.com/phylomb/evepipe/internal/ent/phylo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Input is the validated payload handed to a Fitter. Matrix rows are
// taxa, columns are samples; Species[i] is the species label of sample
// column i and must be a tip of Tree.
type Input struct {
	Matrix   *mat.Dense
	TaxonIDs []string
	Species  []string
	Tree     *phylo.Tree
}

// FitResult is what the external routine reports back: one shared beta
// across all taxa, and a per-taxon beta and likelihood-ratio statistic
// for the individual fits.
type FitResult struct {
	SharedBeta float64
	Betas      []float64
	LRT        []float64
}

// Fitter runs the beta-shared maximum-likelihood fit. Fits can run for
// days on large inputs, so implementations must honor context
// cancellation.
type Fitter interface {
	Fit(ctx context.Context, inp Input) (FitResult, error)
}

// Runner drives the whole comparative-test pipeline.
type Runner interface {
	Run(ctx context.Context) error
}

// Validate checks the fitter preconditions eagerly. The external
// routine fails non-deterministically or misaligns data silently when
// fed a species label missing from the tree or a non-finite value, so
// every violation is fatal here, before the delegate ever starts.
func Validate(inp Input) error {
	if inp.Matrix == nil {
		return fmt.Errorf("eve: abundance matrix is nil")
	}
	rows, cols := inp.Matrix.Dims()
	if len(inp.Species) != cols {
		return fmt.Errorf(
			"eve: %d matrix columns but %d species labels",
			cols, len(inp.Species),
		)
	}
	if len(inp.TaxonIDs) != rows {
		return fmt.Errorf(
			"eve: %d matrix rows but %d taxon IDs", rows, len(inp.TaxonIDs),
		)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := inp.Matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf(
					"eve: non-finite value at taxon %s, sample column %d",
					inp.TaxonIDs[i], j,
				)
			}
		}
	}
	if inp.Tree == nil {
		return fmt.Errorf("eve: tree is nil")
	}
	return inp.Tree.Validate(inp.Species)
}

// LogTransform returns a new matrix of ln(x + pseudocount). Counts are
// zero-inflated, so the pseudocount keeps the transform finite.
func LogTransform(m *mat.Dense, pseudocount float64) *mat.Dense {
	rows, cols := m.Dims()
	res := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			res.Set(i, j, math.Log(m.At(i, j)+pseudocount))
		}
	}
	return res
}

// PValues converts likelihood-ratio statistics to p-values under the
// one-degree-of-freedom chi-squared null. Negative statistics (a
// numerically unconverged individual fit) map to p = 1.
func PValues(lrt []float64) []float64 {
	chi2 := distuv.ChiSquared{K: 1}
	res := make([]float64, len(lrt))
	for i, x := range lrt {
		if x <= 0 {
			res[i] = 1
			continue
		}
		res[i] = chi2.Survival(x)
	}
	return res
}
