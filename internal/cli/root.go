package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables bound to global flags,
// e.g. FBSCENARIO_FORMAT or FBSCENARIO_LOG_LEVEL.
const EnvPrefix = "FBSCENARIO"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string // "debug" | "info" | "warn" | "error"

	// Logger is installed by the root command before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fbscenario CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "fbscenario",
		Short: "Run file-based source test scenarios",
		Long: `Validate, inspect and run file-based source test scenarios.

Scenarios are YAML files describing an in-memory source and the outcome
expected from spec, check, discover and read.

Global flags can also be set through the environment:
  FBSCENARIO_FORMAT, FBSCENARIO_VERBOSE, FBSCENARIO_LOG_LEVEL`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Format = v.GetString("format")
			opts.Verbose = v.GetBool("verbose")
			opts.LogLevel = v.GetString("log-level")

			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			logger, err := newLogger(cmd.ErrOrStderr(), opts.LogLevel, opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid log level", err)
			}
			opts.Logger = logger
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Lookup never returns nil for flags registered above.
	_ = v.BindPFlags(cmd.PersistentFlags())

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger builds a charmbracelet/log backed slog logger writing to w.
// Verbose lowers the level to debug.
func newLogger(w io.Writer, level string, verbose bool) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:  lvl,
		Prefix: "fbscenario",
	})
	return slog.New(handler), nil
}

// logger returns the installed logger, or a discarding one when the command
// runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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
