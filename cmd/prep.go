package cmd

import (
	"log/slog"
	"os"

	"github.com/phylomb/evepipe/internal/io/kvio"
	"github.com/phylomb/evepipe/internal/io/prepio"
	evepipe "github.com/phylomb/evepipe/pkg"
	"github.com/phylomb/evepipe/pkg/config"
	"github.com/spf13/cobra"
)

// prepCmd represents the prep command
var prepCmd = &cobra.Command{
	Use:   "prep",
	Short: "Aligns counts, metadata and taxonomy into analysis-ready tables",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(opts...)
		labelKV, err := kvio.New(cfg.LabelKVDir, true)
		if err != nil {
			slog.Error("Cannot create key-value store", "error", err)
			os.Exit(1)
		}
		p, err := prepio.New(cfg, labelKV)
		if err != nil {
			slog.Error("Cannot initialize preparation pipeline", "error", err)
			os.Exit(1)
		}
		ep := evepipe.New(cfg)
		if err = ep.Prep(p); err != nil {
			slog.Error("Cannot prepare tables", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(prepCmd)
}
