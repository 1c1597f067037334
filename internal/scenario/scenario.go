package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/filescenario/internal/canonical"
	"github.com/roach88/filescenario/internal/protocol"
)

// Operation names used as ExpectedLogs keys.
const (
	OpDiscover = "discover"
	OpRead     = "read"
)

// Source is the connector a scenario runs against.
type Source interface {
	Spec() protocol.ConnectorSpec
	Check(ctx context.Context, config map[string]any) (protocol.ConnectionStatus, error)
	Discover(ctx context.Context, config map[string]any) (*protocol.Catalog, []protocol.LogMessage, error)
	Read(ctx context.Context, config map[string]any, catalog *protocol.ConfiguredCatalog, state []protocol.StateMessage) ([]protocol.Message, error)
	StreamNames(config map[string]any) ([]string, error)
}

// SourceBuilder constructs the source of a scenario.
type SourceBuilder interface {
	// Build creates a source that reads the given configured catalog.
	// configured is nil when the scenario has no expected catalog.
	Build(configured *protocol.ConfiguredCatalog) (Source, error)

	// Clone returns an independent copy of the builder.
	Clone() SourceBuilder
}

// ExpectedLogs maps an operation name (OpDiscover, OpRead) to the logs it is
// expected to emit, in order.
type ExpectedLogs map[string][]protocol.LogMessage

// IncrementalScenarioConfig configures an incremental read.
type IncrementalScenarioConfig struct {
	// InputState is passed to the read.
	InputState []protocol.StateMessage `yaml:"input_state,omitempty"`

	// ExpectedOutputState is the expected final state per stream.
	// nil means the output state is not checked.
	ExpectedOutputState map[string]any `yaml:"expected_output_state,omitempty"`
}

// Copy returns a deep copy. A nil config copies to nil.
func (c *IncrementalScenarioConfig) Copy() *IncrementalScenarioConfig {
	if c == nil {
		return nil
	}
	out := &IncrementalScenarioConfig{
		ExpectedOutputState: canonical.CopyMap(c.ExpectedOutputState),
	}
	if c.InputState != nil {
		out.InputState = make([]protocol.StateMessage, len(c.InputState))
		for i, s := range c.InputState {
			out.InputState[i] = protocol.StateMessage{Stream: s.Stream, State: canonical.CopyMap(s.State)}
		}
	}
	return out
}

// Params holds the fields of a TestScenario.
type Params struct {
	Name                  string
	Config                map[string]any
	Source                Source
	ExpectedSpec          *protocol.ConnectorSpec
	ExpectedCheckStatus   string
	ExpectedCatalog       *protocol.Catalog
	ExpectedLogs          ExpectedLogs
	ExpectedRecords       []protocol.RecordMessage
	ExpectedCheckError    ExpectedError
	ExpectedDiscoverError ExpectedError
	ExpectedReadError     ExpectedError
	Incremental           *IncrementalScenarioConfig
}

// TestScenario is one named test case. It is immutable once constructed.
type TestScenario struct {
	name                  string
	config                map[string]any
	source                Source
	expectedSpec          *protocol.ConnectorSpec
	expectedCheckStatus   string
	expectedCatalog       *protocol.Catalog
	expectedLogs          ExpectedLogs
	expectedRecords       []protocol.RecordMessage
	expectedCheckError    ExpectedError
	expectedDiscoverError ExpectedError
	expectedReadError     ExpectedError
	incremental           *IncrementalScenarioConfig
}

// NewTestScenario creates a scenario from p and validates it.
func NewTestScenario(p Params) (*TestScenario, error) {
	s := &TestScenario{
		name:                  p.Name,
		config:                canonical.CopyMap(p.Config),
		source:                p.Source,
		expectedSpec:          copySpec(p.ExpectedSpec),
		expectedCheckStatus:   p.ExpectedCheckStatus,
		expectedCatalog:       copyCatalog(p.ExpectedCatalog),
		expectedLogs:          copyLogs(p.ExpectedLogs),
		expectedRecords:       copyRecords(p.ExpectedRecords),
		expectedCheckError:    p.ExpectedCheckError,
		expectedDiscoverError: p.ExpectedDiscoverError,
		expectedReadError:     p.ExpectedReadError,
		incremental:           p.Incremental.Copy(),
	}
	if s.config == nil {
		s.config = map[string]any{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the scenario is well formed: it has a name and, when
// it expects a catalog and no operation is expected to fail, every expected
// stream is exposed by the source.
func (s *TestScenario) Validate() error {
	if s.name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidScenario)
	}
	if s.source == nil {
		return fmt.Errorf("%w: scenario %s has no source", ErrInvalidScenario, s.name)
	}
	if s.expectedCatalog == nil {
		return nil
	}
	// Stream names are only meaningful when every operation succeeds.
	if s.expectedCheckError.IsSet() || s.expectedDiscoverError.IsSet() || s.expectedReadError.IsSet() {
		return nil
	}

	names, err := s.source.StreamNames(s.config)
	if err != nil {
		return fmt.Errorf("%w: scenario %s: listing source streams: %w", ErrInvalidScenario, s.name, err)
	}
	var missing []string
	for _, expected := range s.expectedCatalog.StreamNames() {
		if !slices.Contains(names, expected) {
			missing = append(missing, expected)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: scenario %s: expected streams [%s] are not exposed by the source (has [%s])",
			ErrInvalidScenario, s.name, strings.Join(missing, ", "), strings.Join(names, ", "))
	}
	return nil
}

// Name returns the scenario name.
func (s *TestScenario) Name() string { return s.name }

// Config returns a copy of the connector config.
func (s *TestScenario) Config() map[string]any { return canonical.CopyMap(s.config) }

// Source returns the source the scenario runs against.
func (s *TestScenario) Source() Source { return s.source }

// ExpectedSpec returns the expected connector spec, or nil if unchecked.
func (s *TestScenario) ExpectedSpec() *protocol.ConnectorSpec { return copySpec(s.expectedSpec) }

// ExpectedCheckStatus returns the expected check status, or "" if unchecked.
func (s *TestScenario) ExpectedCheckStatus() string { return s.expectedCheckStatus }

// ExpectedCatalog returns the expected catalog, or nil if none was set.
func (s *TestScenario) ExpectedCatalog() *protocol.Catalog { return copyCatalog(s.expectedCatalog) }

// ExpectedLogs returns the expected logs per operation, or nil if unchecked.
func (s *TestScenario) ExpectedLogs() ExpectedLogs { return copyLogs(s.expectedLogs) }

// ExpectedRecords returns the expected records in read order.
func (s *TestScenario) ExpectedRecords() []protocol.RecordMessage { return copyRecords(s.expectedRecords) }

// ExpectedCheckError returns the error check is expected to fail with.
func (s *TestScenario) ExpectedCheckError() ExpectedError { return s.expectedCheckError }

// ExpectedDiscoverError returns the error discover is expected to fail with.
func (s *TestScenario) ExpectedDiscoverError() ExpectedError { return s.expectedDiscoverError }

// ExpectedReadError returns the error read is expected to fail with.
func (s *TestScenario) ExpectedReadError() ExpectedError { return s.expectedReadError }

// Incremental returns the incremental config, or nil for a full refresh.
func (s *TestScenario) Incremental() *IncrementalScenarioConfig { return s.incremental.Copy() }

// SyncMode is incremental when an incremental config is set.
func (s *TestScenario) SyncMode() protocol.SyncMode {
	if s.incremental != nil {
		return protocol.SyncModeIncremental
	}
	return protocol.SyncModeFullRefresh
}

// ConfiguredCatalog wraps every expected stream with mode and the append
// destination mode. It returns nil when no expected catalog was set.
func (s *TestScenario) ConfiguredCatalog(mode protocol.SyncMode) *protocol.ConfiguredCatalog {
	return copyCatalog(s.expectedCatalog).Configure(mode)
}

// InputState returns the incremental input state, or an empty slice.
func (s *TestScenario) InputState() []protocol.StateMessage {
	if s.incremental == nil || s.incremental.InputState == nil {
		return []protocol.StateMessage{}
	}
	return s.incremental.Copy().InputState
}

func copySpec(spec *protocol.ConnectorSpec) *protocol.ConnectorSpec {
	if spec == nil {
		return nil
	}
	return &protocol.ConnectorSpec{
		DocumentationURL:        spec.DocumentationURL,
		ConnectionSpecification: canonical.CopyMap(spec.ConnectionSpecification),
	}
}

func copyCatalog(c *protocol.Catalog) *protocol.Catalog {
	if c == nil {
		return nil
	}
	out := &protocol.Catalog{Streams: make([]protocol.Stream, len(c.Streams))}
	for i, s := range c.Streams {
		out.Streams[i] = protocol.Stream{
			Name:                s.Name,
			JSONSchema:          canonical.CopyMap(s.JSONSchema),
			SupportedSyncModes:  slices.Clone(s.SupportedSyncModes),
			SourceDefinedCursor: s.SourceDefinedCursor,
			DefaultCursorField:  slices.Clone(s.DefaultCursorField),
		}
		if s.SourceDefinedPrimaryKey != nil {
			pk := make([][]string, len(s.SourceDefinedPrimaryKey))
			for j, key := range s.SourceDefinedPrimaryKey {
				pk[j] = slices.Clone(key)
			}
			out.Streams[i].SourceDefinedPrimaryKey = pk
		}
	}
	return out
}

func copyLogs(logs ExpectedLogs) ExpectedLogs {
	if logs == nil {
		return nil
	}
	out := make(ExpectedLogs, len(logs))
	for op, msgs := range logs {
		out[op] = slices.Clone(msgs)
	}
	return out
}

func copyRecords(records []protocol.RecordMessage) []protocol.RecordMessage {
	if records == nil {
		return nil
	}
	out := make([]protocol.RecordMessage, len(records))
	for i, r := range records {
		out[i] = protocol.RecordMessage{Stream: r.Stream, Data: canonical.CopyMap(r.Data), EmittedAt: r.EmittedAt}
	}
	return out
}
