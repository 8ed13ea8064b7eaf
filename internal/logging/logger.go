package logging

import (
	"log/slog"
	"os"
)

// Setup installs the global JSON logger on stdout. It runs before the
// database is up; main swaps in a MultiHandler with the Postgres sink once
// migrations have completed.
func Setup() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}
