package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// newLogger builds the CLI logger: text on stderr (info, or debug when
// verbose), fanned out to a JSON file at debug level when logFile is set.
// The returned func closes the file.
func newLogger(stderr io.Writer, verbose bool, logFile string) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}
	closeLog := func() error { return nil }

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closeLog = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeLog, nil
}
