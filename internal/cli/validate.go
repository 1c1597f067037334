package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Filter string
}

// ScenarioValidation is the validation outcome of one scenario file.
type ScenarioValidation struct {
	File  string    `json:"file"`
	Name  string    `json:"name,omitempty"`
	Valid bool      `json:"valid"`
	Error *CLIError `json:"error,omitempty"`
}

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Scenarios []ScenarioValidation `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenario files",
		Long: `Load and build every scenario file in a directory.

A scenario is valid when its YAML decodes without unknown fields, its
required fields are set, its source builds and the streams of its
expected catalog exist in the source.

Exit codes:
  0 - All scenarios valid
  1 - One or more scenarios invalid
  2 - Command error (invalid paths, etc.)

Examples:
  fbscenario validate ./scenarios
  fbscenario validate ./scenarios --filter "csv_*" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := requireDir(dir, "scenarios directory"); err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return err
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeScanError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeNoFiles, fmt.Sprintf("no scenario files found in %s", dir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenario files found in %s", dir))
	}

	logger := opts.logger()
	result := ValidationResult{Valid: true, Scenarios: make([]ScenarioValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		entry := ScenarioValidation{File: file, Valid: true}

		scn, err := loadScenario(file, logger)
		if err != nil {
			entry.Valid = false
			entry.Error = &CLIError{Code: errorCode(err), Message: err.Error()}
			result.Valid = false
		} else {
			entry.Name = scn.Name()
		}
		logger.Debug("scenario validated", "file", file, "valid", entry.Valid)
		result.Scenarios = append(result.Scenarios, entry)
	}

	if opts.Format == "json" {
		return outputValidateJSON(formatter, result)
	}
	return outputValidateText(formatter, result)
}

// outputValidateJSON outputs the validation result as JSON.
func outputValidateJSON(formatter *OutputFormatter, result ValidationResult) error {
	if result.Valid {
		return formatter.Success(result)
	}

	invalid := countInvalid(result)
	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%d scenario(s) invalid", invalid),
		},
	}
	if err := encodeIndented(formatter.Writer, response); err != nil {
		return err
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d scenario(s)", invalid))
}

// outputValidateText outputs the validation result as text.
func outputValidateText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer

	for _, entry := range result.Scenarios {
		if entry.Valid {
			fmt.Fprintf(w, "✓ %s\n", entry.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", entry.File)
		fmt.Fprintf(w, "  %s: %s\n", entry.Error.Code, entry.Error.Message)
	}

	if !result.Valid {
		invalid := countInvalid(result)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "✗ Validation failed for %d scenario(s)\n", invalid)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d scenario(s)", invalid))
	}

	fmt.Fprintln(w, "✓ All scenarios valid")
	return nil
}

func countInvalid(result ValidationResult) int {
	n := 0
	for _, entry := range result.Scenarios {
		if !entry.Valid {
			n++
		}
	}
	return n
}
