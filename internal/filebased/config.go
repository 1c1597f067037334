package filebased

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed config.cue
var configSchema string

// Validation policy names as they appear in stream configs.
const (
	PolicyEmitRecord      = "Emit Record"
	PolicySkipRecord      = "Skip Record"
	PolicyWaitForDiscover = "Wait for Discover"
)

// Defaults applied to stream configs.
const (
	DefaultValidationPolicy          = PolicyEmitRecord
	DefaultDaysToSyncIfHistoryIsFull = 3
	defaultGlob                      = "**"
)

// Config is the parsed connector configuration.
type Config struct {
	StartDate string         `json:"start_date,omitempty"`
	Streams   []StreamConfig `json:"streams"`
}

// StreamConfig configures one file-based stream.
type StreamConfig struct {
	Name                      string         `json:"name"`
	FileType                  string         `json:"file_type"`
	Globs                     []string       `json:"globs,omitempty"`
	ValidationPolicy          string         `json:"validation_policy,omitempty"`
	InputSchema               string         `json:"input_schema,omitempty"`
	PrimaryKey                string         `json:"primary_key,omitempty"`
	DaysToSyncIfHistoryIsFull int            `json:"days_to_sync_if_history_is_full,omitempty"`
	Format                    map[string]any `json:"format,omitempty"`
}

// Stream returns the config of the named stream.
func (c *Config) Stream(name string) (StreamConfig, bool) {
	for _, s := range c.Streams {
		if s.Name == name {
			return s, true
		}
	}
	return StreamConfig{}, false
}

// ParseConfig validates raw against the embedded CUE schema and decodes it.
// All failures are SourceErrors with CodeConfigValidation.
func ParseConfig(raw map[string]any) (*Config, error) {
	if err := validateConfig(raw); err != nil {
		return nil, newError(CodeConfigValidation, "", "", "config does not match schema", err)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, newError(CodeConfigValidation, "", "", "config is not JSON-serializable", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, newError(CodeConfigValidation, "", "", "decoding config", err)
	}

	seen := make(map[string]bool, len(cfg.Streams))
	for i := range cfg.Streams {
		s := &cfg.Streams[i]
		if seen[s.Name] {
			return nil, newError(CodeConfigValidation, s.Name, "", "duplicate stream name", nil)
		}
		seen[s.Name] = true
		applyStreamDefaults(s)
	}
	return &cfg, nil
}

func applyStreamDefaults(s *StreamConfig) {
	if len(s.Globs) == 0 {
		s.Globs = []string{defaultGlob}
	}
	if s.ValidationPolicy == "" {
		s.ValidationPolicy = DefaultValidationPolicy
	}
	if s.DaysToSyncIfHistoryIsFull == 0 {
		s.DaysToSyncIfHistoryIsFull = DefaultDaysToSyncIfHistoryIsFull
	}
}

// validateConfig unifies raw with #Config and requires a concrete result.
func validateConfig(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return formatCUEError(err)
	}
	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into a single error.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
