package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/walkthrough/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	LogFile string

	// Env holds the WALKTHROUGH_* defaults read before any command runs.
	Env config.Config

	logger   *slog.Logger
	closeLog func() error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Logger returns the command logger. Commands built without the root
// command log nowhere.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// Close releases the log file, if one was opened.
func (o *RootOptions) Close() error {
	if o.closeLog == nil {
		return nil
	}
	err := o.closeLog()
	o.closeLog = nil
	return err
}

// NewRootCommand creates the root command for the walkthrough CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "walkthrough",
		Short: "Timed step-by-step walkthroughs",
		Long: `Play, inspect and test timed walkthroughs: ordered steps revealed one at a
time, automatically after each step's delay or by hand.

Flag defaults can be set with WALKTHROUGH_FORMAT, WALKTHROUGH_SPEED,
WALKTHROUGH_VERBOSE and WALKTHROUGH_LOG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "also write JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd, opts
}

// Execute runs the CLI with args and returns the error that determines the
// exit code. The log file is closed before returning.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd, opts := newRootCommand()
	defer opts.Close()

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// cobra usage errors (unknown flag, wrong arg count)
		exitErr = WrapExitError(ExitCommandError, "invalid usage", err)
	}
	if !exitErr.Reported {
		fmt.Fprintf(stderr, "Error: %v\n", exitErr)
	}
	return exitErr
}

// setup applies env defaults to flags left unset, validates them and builds
// the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	env, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	o.Env = env

	flags := cmd.Flags()
	if !flags.Changed("format") {
		o.Format = env.Format
	}
	if !flags.Changed("verbose") {
		o.Verbose = env.Verbose
	}
	if !flags.Changed("log-file") {
		o.LogFile = env.LogFile
	}

	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	logger, closeLog, err := newLogger(cmd.ErrOrStderr(), o.Verbose, o.LogFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	o.logger = logger
	o.closeLog = closeLog
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
