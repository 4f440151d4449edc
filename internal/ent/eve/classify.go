package eve

// TaxonType describes how a taxon's fitted beta relates to the shared
// beta estimate.
type TaxonType string

const (
	// LineageSpecific marks taxa whose beta falls below the shared
	// estimate: divergence between species dominates diversity within
	// them.
	LineageSpecific TaxonType = "lineage-specific"

	// HighlyVariable marks taxa whose beta is at or above the shared
	// estimate.
	HighlyVariable TaxonType = "highly variable"

	// NotSignificant is the category of taxa whose individual fit does
	// not beat the shared fit at the configured threshold.
	NotSignificant = "not significant"
)

// Category is the classification of one taxon's fit.
type Category struct {
	Type        TaxonType
	Significant bool
	Category    string
}

// Classify assigns a category from a taxon's fitted beta, the global
// shared beta and the p-value of its likelihood-ratio statistic. It is
// pure and total: every finite input gets a category, and Category
// equals Type exactly when Significant is true.
func Classify(beta, sharedBeta, pval, alpha float64) Category {
	res := Category{Type: HighlyVariable}
	if beta < sharedBeta {
		res.Type = LineageSpecific
	}
	res.Significant = pval <= alpha
	if res.Significant {
		res.Category = string(res.Type)
	} else {
		res.Category = NotSignificant
	}
	return res
}

// Result is one taxon's full comparative-test record as written to the
// results table.
type Result struct {
	TaxonID string
	Label   string
	Beta    float64
	LRT     float64
	PValue  float64
	Category
}
