package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/phylomb/evepipe/cmd"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cmd.Execute()
}
