package evepipe

import (
	"context"

	"github.com/phylomb/evepipe/internal/ent/eve"
	"github.com/phylomb/evepipe/internal/ent/prep"
)

// Version and Build are set by the linker.
var (
	Version = "v0.1.0"
	Build   = "n/a"
)

// EvePipe is an interface for preparing microbiome tables and running
// the comparative test over them.
type EvePipe interface {
	// Prep runs the data-preparation pipeline and writes the aligned
	// tables.
	Prep(prep.Preparer) error

	// Test runs the comparative-test pipeline over the aligned tables.
	Test(context.Context, eve.Runner) error
}
