package prep

// Preparer is the interface that wraps the Prepare method.
type Preparer interface {
	// Prepare runs the data-preparation pipeline: load, simplify
	// taxonomy, merge, depth-filter, deduplicate, write aligned CSVs.
	Prepare() error
}
