package cmd

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gnames/gnsys"
	evepipe "github.com/phylomb/evepipe/pkg"
	"github.com/phylomb/evepipe/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//go:embed evepipe.yaml
var configText string

var opts []config.Option

// cfgData mirrors the YAML configuration file.
type cfgData struct {
	DataDir        string
	WorkDir        string
	OutDir         string
	CountsFile     string
	MetaFile       string
	TaxaFile       string
	TreeFile       string
	SampleIDCol    string
	GenotypeCol    string
	SpeciesCol     string
	DepthThreshold int
	ConfThreshold  float64
	PValThreshold  float64
	Pseudocount    float64
	DedupPolicy    string
	JoinPolicy     string
	EveCmd         string
	JobsNum        int
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "evepipe",
	Short: "Prepares microbiome tables and runs the EVE beta-shared test",
	Long: `evepipe aligns per-sample feature counts with sample metadata and
taxonomy, filters low-depth samples, deduplicates, and runs the
Expression Variance and Evolution beta-shared test over the aligned
abundance matrix with a fixed phylogenetic species tree.`,
	Run: func(cmd *cobra.Command, args []string) {
		version, err := cmd.Flags().GetBool("version")
		if err != nil {
			slog.Error("Cannot get flag", "error", err)
			os.Exit(1)
		}
		if version {
			fmt.Printf("\nversion: %s\nbuild: %s\n\n", evepipe.Version, evepipe.Build)
			os.Exit(0)
		}

		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().BoolP("version", "V", false, "Returns version and build date")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	var homeDir, cfgDir string
	configFile := "evepipe"

	// Find home directory.
	homeDir, err = os.UserHomeDir()
	if err != nil {
		slog.Error("Cannot find home dir", "error", err)
		os.Exit(1)
	}
	cfgDir = filepath.Join(homeDir, ".config")

	// Search config in home directory with name "evepipe" (without extension).
	viper.AddConfigPath(cfgDir)
	viper.SetConfigName(configFile)

	configPath := filepath.Join(cfgDir, fmt.Sprintf("%s.yaml", configFile))
	touchConfigFile(configPath)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		slog.Error("Config file evepipe.yaml not found", "error", err)
		os.Exit(1)
	}
	getOpts()
}

// getOpts imports data from the configuration file. Some of the settings can
// be overriden by command line flags.
func getOpts() []config.Option {
	cfg := cfgData{}
	err := viper.Unmarshal(&cfg)
	if err != nil {
		slog.Error("Cannot unmarshal config file", "error", err)
	}

	if cfg.DataDir != "" {
		opts = append(opts, config.OptDataDir(cfg.DataDir))
	}
	if cfg.WorkDir != "" {
		opts = append(opts, config.OptWorkDir(cfg.WorkDir))
	}
	if cfg.OutDir != "" {
		opts = append(opts, config.OptOutDir(cfg.OutDir))
	}
	if cfg.CountsFile != "" {
		opts = append(opts, config.OptCountsFile(cfg.CountsFile))
	}
	if cfg.MetaFile != "" {
		opts = append(opts, config.OptMetaFile(cfg.MetaFile))
	}
	if cfg.TaxaFile != "" {
		opts = append(opts, config.OptTaxaFile(cfg.TaxaFile))
	}
	if cfg.TreeFile != "" {
		opts = append(opts, config.OptTreeFile(cfg.TreeFile))
	}
	if cfg.SampleIDCol != "" {
		opts = append(opts, config.OptSampleIDCol(cfg.SampleIDCol))
	}
	if cfg.GenotypeCol != "" {
		opts = append(opts, config.OptGenotypeCol(cfg.GenotypeCol))
	}
	if cfg.SpeciesCol != "" {
		opts = append(opts, config.OptSpeciesCol(cfg.SpeciesCol))
	}
	if cfg.DepthThreshold != 0 {
		opts = append(opts, config.OptDepthThreshold(cfg.DepthThreshold))
	}
	if cfg.ConfThreshold != 0 {
		opts = append(opts, config.OptConfThreshold(cfg.ConfThreshold))
	}
	if cfg.PValThreshold != 0 {
		opts = append(opts, config.OptPValThreshold(cfg.PValThreshold))
	}
	if cfg.Pseudocount != 0 {
		opts = append(opts, config.OptPseudocount(cfg.Pseudocount))
	}
	if cfg.DedupPolicy != "" {
		opts = append(opts, config.OptDedupPolicy(cfg.DedupPolicy))
	}
	if cfg.JoinPolicy != "" {
		opts = append(opts, config.OptJoinPolicy(cfg.JoinPolicy))
	}
	if cfg.EveCmd != "" {
		opts = append(opts, config.OptEveCmd(cfg.EveCmd))
	}
	if cfg.JobsNum != 0 {
		opts = append(opts, config.OptJobsNum(cfg.JobsNum))
	}
	return opts
}

// touchConfigFile checks if config file exists, and if not, it gets created.
func touchConfigFile(configPath string) {
	fileExists, _ := gnsys.FileExists(configPath)
	if fileExists {
		return
	}

	slog.Info("Creating config file", "path", configPath)
	createConfig(configPath)
}

// createConfig creates config file.
func createConfig(path string) {
	err := gnsys.MakeDir(filepath.Dir(path))
	if err != nil {
		slog.Error("Cannot create config dir", "error", err)
		os.Exit(1)
	}

	err = os.WriteFile(path, []byte(configText), 0644)
	if err != nil {
		slog.Error("Cannot write to config file", "error", err)
		os.Exit(1)
	}
}
