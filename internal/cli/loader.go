package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/filescenario/internal/scenario"
)

// findScenarioFiles finds all YAML scenario files in a directory.
// Golden directories are skipped. A non-empty filter is matched against the
// file name without its extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		// Apply filter if specified
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// loadError reports which stage of loading a scenario file failed.
type loadError struct {
	Code string // ErrCodeLoadFailed or ErrCodeBuildFailed
	Err  error
}

func (e *loadError) Error() string { return e.Err.Error() }

func (e *loadError) Unwrap() error { return e.Err }

// loadScenario loads a scenario file and builds it. The built source logs
// to logger.
func loadScenario(path string, logger *slog.Logger) (*scenario.TestScenario, error) {
	builder, err := scenario.LoadScenario(path)
	if err != nil {
		return nil, &loadError{Code: ErrCodeLoadFailed, Err: err}
	}
	if sb, ok := builder.SourceBuilder().(*scenario.FileBasedSourceBuilder); ok {
		sb.SetLogger(logger.With("scenario", builder.Name()))
	}
	scn, err := builder.Build()
	if err != nil {
		return nil, &loadError{Code: ErrCodeBuildFailed, Err: err}
	}
	return scn, nil
}

// errorCode returns the CLI error code of a loadScenario failure.
func errorCode(err error) string {
	var le *loadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// requireDir returns a command error when dir does not exist or is not a
// directory.
func requireDir(dir, what string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s not found: %s", what, dir))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to stat %s", what), err)
	}
	if !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s is not a directory: %s", what, dir))
	}
	return nil
}
