// Package execio runs the external EVE maximum-likelihood fitter. The
// fit is an opaque routine that can run for days, so the invocation is
// a cancellable batch-job boundary: inputs are staged as files, the
// command runs under the caller's context, progress is logged while it
// runs, and the result files are validated before anything downstream
// sees them.
package execio

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gnames/gnsys"
	"github.com/phylomb/evepipe/internal/ent/eve"
	"github.com/phylomb/evepipe/pkg/config"
)

// heartbeat is how often elapsed time is logged while the fitter runs.
const heartbeat = time.Minute

type execio struct {
	cfg config.Config
}

// New returns an eve.Fitter that shells out to the configured command.
func New(cfg config.Config) (eve.Fitter, error) {
	res := execio{cfg: cfg}
	err := gnsys.MakeDir(cfg.WorkDir)
	if err != nil {
		slog.Error("Cannot create work directory", "error", err)
		return nil, err
	}
	return &res, nil
}

// Fit stages the inputs, runs the external command and parses its
// output. The input must already be validated; the delegate is never
// the first place a precondition violation shows up.
func (e *execio) Fit(ctx context.Context, inp eve.Input) (eve.FitResult, error) {
	var res eve.FitResult

	if err := eve.Validate(inp); err != nil {
		return res, err
	}
	if err := e.stageInputs(inp); err != nil {
		return res, err
	}

	matrixPath := filepath.Join(e.cfg.WorkDir, "matrix.csv")
	speciesPath := filepath.Join(e.cfg.WorkDir, "species.csv")
	treePath := filepath.Join(e.cfg.WorkDir, "tree.nwk")
	fitPath := filepath.Join(e.cfg.WorkDir, "fit.csv")
	sharedPath := filepath.Join(e.cfg.WorkDir, "shared_beta.txt")

	cmd := exec.CommandContext(ctx, e.cfg.EveCmd,
		"--matrix", matrixPath,
		"--species", speciesPath,
		"--tree", treePath,
		"--fit", fitPath,
		"--shared", sharedPath,
	)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return res, err
	}

	slog.Info("Starting external fitter", "cmd", e.cfg.EveCmd)
	start := time.Now()
	if err = cmd.Start(); err != nil {
		slog.Error("Cannot start external fitter", "error", err)
		return res, err
	}

	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(heartbeat)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				slog.Info("External fitter is running",
					"elapsed", time.Since(start).Round(time.Second),
				)
			}
		}
	}()

	scan := bufio.NewScanner(stderr)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scan.Scan() {
		slog.Info("fitter", "msg", scan.Text())
	}
	if scanErr := scan.Err(); scanErr != nil {
		slog.Warn("Cannot read fitter stderr", "error", scanErr)
		// keep draining, a full pipe would block the child
		_, _ = io.Copy(io.Discard, stderr)
	}

	err = cmd.Wait()
	close(done)
	if ctx.Err() != nil {
		slog.Warn("External fitter was cancelled",
			"elapsed", time.Since(start).Round(time.Second),
		)
		return res, ctx.Err()
	}
	if err != nil {
		slog.Error("External fitter failed", "error", err)
		return res, err
	}
	slog.Info("External fitter finished",
		"elapsed", time.Since(start).Round(time.Second),
	)

	return e.readFit(fitPath, sharedPath, inp.TaxonIDs)
}

// stageInputs writes the matrix, species vector and tree into the work
// directory in the layout the fitter expects: matrix rows are taxa,
// columns are samples, and species.csv labels the columns in order.
func (e *execio) stageInputs(inp eve.Input) error {
	rows, cols := inp.Matrix.Dims()

	f, err := os.Create(filepath.Join(e.cfg.WorkDir, "matrix.csv"))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	for i := 0; i < rows; i++ {
		rec := make([]string, cols+1)
		rec[0] = inp.TaxonIDs[i]
		for j := 0; j < cols; j++ {
			rec[j+1] = strconv.FormatFloat(inp.Matrix.At(i, j), 'g', -1, 64)
		}
		if err = w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	species := strings.Join(inp.Species, "\n") + "\n"
	err = os.WriteFile(
		filepath.Join(e.cfg.WorkDir, "species.csv"), []byte(species), 0644,
	)
	if err != nil {
		return err
	}

	return os.WriteFile(
		filepath.Join(e.cfg.WorkDir, "tree.nwk"),
		[]byte(inp.Tree.Newick()+"\n"), 0644,
	)
}

// readFit parses the per-taxon fit table and the shared-beta file. Row
// order and taxon IDs must match the staged input exactly.
func (e *execio) readFit(fitPath, sharedPath string, taxonIDs []string) (eve.FitResult, error) {
	var res eve.FitResult

	bs, err := os.ReadFile(sharedPath)
	if err != nil {
		slog.Error("Cannot read shared-beta file", "error", err)
		return res, err
	}
	res.SharedBeta, err = strconv.ParseFloat(strings.TrimSpace(string(bs)), 64)
	if err != nil {
		return res, fmt.Errorf("execio: bad shared beta %q", strings.TrimSpace(string(bs)))
	}

	f, err := os.Open(fitPath)
	if err != nil {
		slog.Error("Cannot open fit file", "error", err)
		return res, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	recs, err := r.ReadAll()
	if err != nil {
		return res, err
	}
	if len(recs) == 0 || len(recs)-1 != len(taxonIDs) {
		return res, fmt.Errorf(
			"execio: fit file has %d rows, input had %d taxa",
			len(recs)-1, len(taxonIDs),
		)
	}

	res.Betas = make([]float64, len(taxonIDs))
	res.LRT = make([]float64, len(taxonIDs))
	for i, rec := range recs[1:] {
		if len(rec) != 3 {
			return res, fmt.Errorf("execio: fit row %d has %d fields", i+1, len(rec))
		}
		if rec[0] != taxonIDs[i] {
			return res, fmt.Errorf(
				"execio: fit row %d is %q, expected taxon %q", i+1, rec[0], taxonIDs[i],
			)
		}
		if res.Betas[i], err = strconv.ParseFloat(rec[1], 64); err != nil {
			return res, fmt.Errorf("execio: bad beta %q for taxon %q", rec[1], rec[0])
		}
		if res.LRT[i], err = strconv.ParseFloat(rec[2], 64); err != nil {
			return res, fmt.Errorf("execio: bad LRT %q for taxon %q", rec[2], rec[0])
		}
	}
	return res, nil
}
