package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Config is a struct that holds configuration parameters for the
// package. Every numeric literal the interactive analysis used inline
// (depth threshold, confidence cutoff, p-value threshold) is a named
// field here.
type Config struct {
	// DataDir is the directory with the input CSV files and the
	// phylogenetic tree.
	DataDir string

	// WorkDir is a directory for intermediate files: the label
	// key-value store and the files exchanged with the external
	// fitter.
	WorkDir string

	// OutDir is the directory for aligned tables, reports, results and
	// plots.
	OutDir string

	// LabelKVDir is the directory of the key-value store that carries
	// feature labels between the prep and test stages.
	LabelKVDir string

	// CountsFile is the per-sample feature-count CSV inside DataDir.
	CountsFile string

	// MetaFile is the sample-metadata CSV inside DataDir.
	MetaFile string

	// TaxaFile is the taxonomy CSV inside DataDir.
	TaxaFile string

	// TreeFile is the Newick species tree inside DataDir.
	TreeFile string

	// SampleIDCol is the sample identifier column shared by the counts
	// and metadata tables.
	SampleIDCol string

	// GenotypeCol is the metadata column combined with the sample ID
	// into the composite deduplication key.
	GenotypeCol string

	// SpeciesCol is the metadata column holding the host species label
	// matched against the tree tips.
	SpeciesCol string

	// DepthThreshold is the minimal total read count per sample.
	// Samples whose counts sum to the threshold or less are dropped;
	// the predicate is strictly greater-than. The default comes from
	// the upstream quality-control run, it is not recomputed here.
	DepthThreshold int

	// ConfThreshold is the classification confidence at or above which
	// the species-level label is preferred over the genus-level one.
	ConfThreshold float64

	// PValThreshold is the significance cutoff for the comparative
	// test.
	PValThreshold float64

	// Pseudocount is added to every count before the log transform.
	Pseudocount float64

	// DedupPolicy selects the surviving row among duplicates: "first"
	// or "last".
	DedupPolicy string

	// JoinPolicy decides what happens to samples present in only one
	// of the counts and metadata tables: "keep" or "drop".
	JoinPolicy string

	// EveCmd is the external command that runs the beta-shared
	// maximum-likelihood fit.
	EveCmd string

	// JobsNum is a number of concurrent goroutines.
	JobsNum int
}

// Option type allows to change settings for Config.
type Option func(*Config)

// OptDataDir sets the input-data directory.
func OptDataDir(d string) Option {
	return func(cfg *Config) {
		cfg.DataDir = d
	}
}

// OptWorkDir sets the directory for intermediate files.
func OptWorkDir(d string) Option {
	return func(cfg *Config) {
		cfg.WorkDir = d
	}
}

// OptOutDir sets the output directory.
func OptOutDir(d string) Option {
	return func(cfg *Config) {
		cfg.OutDir = d
	}
}

// OptCountsFile sets the feature-count CSV file name.
func OptCountsFile(f string) Option {
	return func(cfg *Config) {
		cfg.CountsFile = f
	}
}

// OptMetaFile sets the sample-metadata CSV file name.
func OptMetaFile(f string) Option {
	return func(cfg *Config) {
		cfg.MetaFile = f
	}
}

// OptTaxaFile sets the taxonomy CSV file name.
func OptTaxaFile(f string) Option {
	return func(cfg *Config) {
		cfg.TaxaFile = f
	}
}

// OptTreeFile sets the Newick tree file name.
func OptTreeFile(f string) Option {
	return func(cfg *Config) {
		cfg.TreeFile = f
	}
}

// OptSampleIDCol sets the sample identifier column name.
func OptSampleIDCol(c string) Option {
	return func(cfg *Config) {
		cfg.SampleIDCol = c
	}
}

// OptGenotypeCol sets the genotype column name.
func OptGenotypeCol(c string) Option {
	return func(cfg *Config) {
		cfg.GenotypeCol = c
	}
}

// OptSpeciesCol sets the species column name.
func OptSpeciesCol(c string) Option {
	return func(cfg *Config) {
		cfg.SpeciesCol = c
	}
}

// OptDepthThreshold sets the minimal total read count per sample.
func OptDepthThreshold(n int) Option {
	return func(cfg *Config) {
		cfg.DepthThreshold = n
	}
}

// OptConfThreshold sets the confidence cutoff for species-level
// labels.
func OptConfThreshold(v float64) Option {
	return func(cfg *Config) {
		cfg.ConfThreshold = v
	}
}

// OptPValThreshold sets the significance cutoff.
func OptPValThreshold(v float64) Option {
	return func(cfg *Config) {
		cfg.PValThreshold = v
	}
}

// OptPseudocount sets the value added to every count before the log
// transform.
func OptPseudocount(v float64) Option {
	return func(cfg *Config) {
		cfg.Pseudocount = v
	}
}

// OptDedupPolicy sets the duplicate-resolution policy.
func OptDedupPolicy(p string) Option {
	return func(cfg *Config) {
		cfg.DedupPolicy = p
	}
}

// OptJoinPolicy sets the unmatched-sample policy.
func OptJoinPolicy(p string) Option {
	return func(cfg *Config) {
		cfg.JoinPolicy = p
	}
}

// OptEveCmd sets the external fitter command.
func OptEveCmd(c string) Option {
	return func(cfg *Config) {
		cfg.EveCmd = c
	}
}

// OptJobsNum sets parallelism number for concurrent goroutines.
func OptJobsNum(j int) Option {
	return func(cfg *Config) {
		cfg.JobsNum = j
	}
}

// New applies defaults, then options, and derives the directories that
// hang off WorkDir.
func New(opts ...Option) Config {
	workDir, err := os.UserCacheDir()
	if err != nil {
		workDir = os.TempDir()
	}
	workDir = filepath.Join(workDir, "evepipe")

	res := Config{
		DataDir:        ".",
		WorkDir:        workDir,
		OutDir:         "results",
		CountsFile:     "counts.csv",
		MetaFile:       "metadata.csv",
		TaxaFile:       "taxonomy.csv",
		TreeFile:       "species.nwk",
		SampleIDCol:    "SampleID",
		GenotypeCol:    "Genotype",
		SpeciesCol:     "Species",
		DepthThreshold: 5141,
		ConfThreshold:  0.97,
		PValThreshold:  0.1,
		Pseudocount:    1,
		DedupPolicy:    "first",
		JoinPolicy:     "keep",
		EveCmd:         "evefit",
		JobsNum:        4,
	}

	for _, opt := range opts {
		opt(&res)
	}

	res.DataDir = expandHome(res.DataDir)
	res.WorkDir = expandHome(res.WorkDir)
	res.OutDir = expandHome(res.OutDir)
	res.LabelKVDir = filepath.Join(res.WorkDir, "labels")

	return res
}

// expandHome resolves a leading "~/" against the user's home
// directory, so config-file paths like "~/.cache/evepipe" work.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
