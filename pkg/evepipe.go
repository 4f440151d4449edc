package evepipe

import (
	"context"

	"github.com/phylomb/evepipe/internal/ent/eve"
	"github.com/phylomb/evepipe/internal/ent/prep"
	"github.com/phylomb/evepipe/pkg/config"
)

// evepipe is an implementation of EvePipe interface.
type evepipe struct {
	cfg config.Config
}

// New creates a new instance of EvePipe.
func New(cfg config.Config) EvePipe {
	res := evepipe{cfg: cfg}
	return &res
}

// Prep runs the data-preparation pipeline and writes the aligned
// tables.
func (e *evepipe) Prep(p prep.Preparer) error {
	return p.Prepare()
}

// Test runs the comparative-test pipeline over the aligned tables.
func (e *evepipe) Test(ctx context.Context, r eve.Runner) error {
	return r.Run(ctx)
}
