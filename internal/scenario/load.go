package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filescenario/internal/filebased"
	"github.com/roach88/filescenario/internal/protocol"
)

// File is the YAML form of a scenario.
type File struct {
	// Name uniquely identifies the scenario.
	Name string `yaml:"name"`

	// Description explains what the scenario covers.
	Description string `yaml:"description,omitempty"`

	// Config is the connector config passed to every operation.
	Config map[string]any `yaml:"config"`

	// Source describes the in-memory source.
	Source SourceFile `yaml:"source"`

	// ExpectSpec checks the spec against the file-based connector spec.
	ExpectSpec bool `yaml:"expect_spec,omitempty"`

	ExpectedCheckStatus   string                     `yaml:"expected_check_status,omitempty"`
	ExpectedCatalog       *protocol.Catalog          `yaml:"expected_catalog,omitempty"`
	ExpectedLogs          ExpectedLogs               `yaml:"expected_logs,omitempty"`
	ExpectedRecords       []protocol.RecordMessage   `yaml:"expected_records,omitempty"`
	ExpectedCheckError    *ErrorFile                 `yaml:"expected_check_error,omitempty"`
	ExpectedDiscoverError *ErrorFile                 `yaml:"expected_discover_error,omitempty"`
	ExpectedReadError     *ErrorFile                 `yaml:"expected_read_error,omitempty"`
	Incremental           *IncrementalScenarioConfig `yaml:"incremental,omitempty"`
}

// SourceFile is the YAML form of a FileBasedSourceBuilder.
type SourceFile struct {
	FileType         string                            `yaml:"file_type"`
	Files            map[string]filebased.InMemoryFile `yaml:"files,omitempty"`
	FileWriteOptions map[string]any                    `yaml:"file_write_options,omitempty"`

	// MaxFilesForSchemaInference overrides the discovery policy when positive.
	MaxFilesForSchemaInference int `yaml:"max_files_for_schema_inference,omitempty"`
}

// ErrorFile is the YAML form of an ExpectedError. Code is a source error
// code such as EMPTY_STREAM.
type ErrorFile struct {
	Code    string `yaml:"code,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// LoadScenario reads a scenario YAML file and returns a builder for it.
// Unknown fields are rejected.
func LoadScenario(path string) (*TestScenarioBuilder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML and returns a builder for it.
func ParseScenario(data []byte) (*TestScenarioBuilder, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateFile(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return f.Builder(), nil
}

// validateFile checks required fields and error codes.
func validateFile(f *File) error {
	var errs []error
	if f.Name == "" {
		errs = append(errs, errors.New("missing required field: name"))
	}
	if f.Config == nil {
		errs = append(errs, errors.New("missing required field: config"))
	}
	if f.Source.FileType == "" {
		errs = append(errs, errors.New("missing required field: source.file_type"))
	}
	if f.ExpectedCheckStatus != "" &&
		f.ExpectedCheckStatus != protocol.StatusSucceeded && f.ExpectedCheckStatus != protocol.StatusFailed {
		errs = append(errs, fmt.Errorf("expected_check_status must be %s or %s, got %q",
			protocol.StatusSucceeded, protocol.StatusFailed, f.ExpectedCheckStatus))
	}
	for op := range f.ExpectedLogs {
		if op != OpDiscover && op != OpRead {
			errs = append(errs, fmt.Errorf("expected_logs: unknown operation %q", op))
		}
	}
	for field, e := range map[string]*ErrorFile{
		"expected_check_error":    f.ExpectedCheckError,
		"expected_discover_error": f.ExpectedDiscoverError,
		"expected_read_error":     f.ExpectedReadError,
	} {
		if e == nil {
			continue
		}
		if e.Code == "" && e.Message == "" {
			errs = append(errs, fmt.Errorf("%s: code or message is required", field))
		}
		if e.Code != "" && !filebased.KnownCode(e.Code) {
			errs = append(errs, fmt.Errorf("%s: unknown error code %q", field, e.Code))
		}
	}
	return errors.Join(errs...)
}

// Builder converts the file into a TestScenarioBuilder.
func (f *File) Builder() *TestScenarioBuilder {
	source := NewFileBasedSourceBuilder().
		SetFileType(f.Source.FileType)
	if f.Source.Files != nil {
		source.SetFiles(f.Source.Files)
	}
	if f.Source.FileWriteOptions != nil {
		source.SetFileWriteOptions(f.Source.FileWriteOptions)
	}
	if n := f.Source.MaxFilesForSchemaInference; n > 0 {
		source.SetDiscoveryPolicy(limitedDiscovery{maxFiles: n})
	}

	b := NewTestScenarioBuilder().
		SetName(f.Name).
		SetConfig(f.Config).
		SetSourceBuilder(source).
		SetExpectedCheckStatus(f.ExpectedCheckStatus).
		SetExpectedCatalog(f.ExpectedCatalog).
		SetExpectedLogs(f.ExpectedLogs).
		SetIncrementalScenarioConfig(f.Incremental)
	if f.ExpectedRecords != nil {
		b.SetExpectedRecords(f.ExpectedRecords)
	}
	if f.ExpectSpec {
		spec := filebased.ConnectorSpec()
		b.SetExpectedSpec(&spec)
	}
	if e := f.ExpectedCheckError; e != nil {
		b.SetExpectedCheckError(e.err(), e.Message)
	}
	if e := f.ExpectedDiscoverError; e != nil {
		b.SetExpectedDiscoverError(e.err(), e.Message)
	}
	if e := f.ExpectedReadError; e != nil {
		b.SetExpectedReadError(e.err(), e.Message)
	}
	return b
}

func (e *ErrorFile) err() error {
	if e.Code == "" {
		return nil
	}
	return filebased.ErrorForCode(filebased.ErrorCode(e.Code))
}

// limitedDiscovery samples fewer files than the default policy.
type limitedDiscovery struct {
	maxFiles int
}

func (limitedDiscovery) NConcurrentRequests() int { return filebased.DefaultNConcurrentRequests }

func (d limitedDiscovery) MaxNFilesForSchemaInference() int { return d.maxFiles }
