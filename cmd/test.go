package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/phylomb/evepipe/internal/io/eveio"
	"github.com/phylomb/evepipe/internal/io/execio"
	"github.com/phylomb/evepipe/internal/io/kvio"
	evepipe "github.com/phylomb/evepipe/pkg"
	"github.com/phylomb/evepipe/pkg/config"
	"github.com/spf13/cobra"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Runs the EVE beta-shared test over the aligned tables",
	Long: `Runs the Expression Variance and Evolution beta-shared test over
the aligned abundance table written by "evepipe prep". The
maximum-likelihood fit is delegated to an external command and can run
for days on large inputs; an interrupt cancels it cleanly.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(opts...)
		labelKV, err := kvio.New(cfg.LabelKVDir, false)
		if err != nil {
			slog.Error("Cannot open key-value store", "error", err)
			os.Exit(1)
		}
		fitter, err := execio.New(cfg)
		if err != nil {
			slog.Error("Cannot initialize external fitter", "error", err)
			os.Exit(1)
		}
		r, err := eveio.New(cfg, labelKV, fitter)
		if err != nil {
			slog.Error("Cannot initialize test pipeline", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		ep := evepipe.New(cfg)
		if err = ep.Test(ctx, r); err != nil {
			slog.Error("Cannot run comparative test", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
