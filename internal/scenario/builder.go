package scenario

import (
	"fmt"

	"github.com/roach88/filescenario/internal/canonical"
	"github.com/roach88/filescenario/internal/protocol"
)

// TestScenarioBuilder accumulates the expectations of one test case. Every
// setter returns the builder for chaining.
type TestScenarioBuilder struct {
	name                  string
	config                map[string]any
	expectedSpec          *protocol.ConnectorSpec
	expectedCheckStatus   string
	expectedCatalog       *protocol.Catalog
	expectedLogs          ExpectedLogs
	expectedRecords       []protocol.RecordMessage
	expectedCheckError    ExpectedError
	expectedDiscoverError ExpectedError
	expectedReadError     ExpectedError
	incremental           *IncrementalScenarioConfig
	sourceBuilder         SourceBuilder
}

// NewTestScenarioBuilder returns an empty builder.
func NewTestScenarioBuilder() *TestScenarioBuilder {
	return &TestScenarioBuilder{
		config:          map[string]any{},
		expectedRecords: []protocol.RecordMessage{},
	}
}

// SetName sets the scenario name. Required.
func (b *TestScenarioBuilder) SetName(name string) *TestScenarioBuilder {
	b.name = name
	return b
}

// SetConfig sets the connector config.
func (b *TestScenarioBuilder) SetConfig(config map[string]any) *TestScenarioBuilder {
	b.config = config
	return b
}

// SetExpectedSpec sets the spec the source is expected to return.
func (b *TestScenarioBuilder) SetExpectedSpec(spec *protocol.ConnectorSpec) *TestScenarioBuilder {
	b.expectedSpec = spec
	return b
}

// SetExpectedCheckStatus sets the expected check status (SUCCEEDED or FAILED).
func (b *TestScenarioBuilder) SetExpectedCheckStatus(status string) *TestScenarioBuilder {
	b.expectedCheckStatus = status
	return b
}

// SetExpectedCatalog sets the expected discovered catalog. It also selects
// the streams the scenario reads.
func (b *TestScenarioBuilder) SetExpectedCatalog(catalog *protocol.Catalog) *TestScenarioBuilder {
	b.expectedCatalog = catalog
	return b
}

// SetExpectedLogs sets the logs expected per operation.
func (b *TestScenarioBuilder) SetExpectedLogs(logs ExpectedLogs) *TestScenarioBuilder {
	b.expectedLogs = logs
	return b
}

// SetExpectedRecords sets the records a read is expected to produce.
func (b *TestScenarioBuilder) SetExpectedRecords(records []protocol.RecordMessage) *TestScenarioBuilder {
	b.expectedRecords = records
	return b
}

// SetIncrementalScenarioConfig makes the scenario read incrementally.
func (b *TestScenarioBuilder) SetIncrementalScenarioConfig(cfg *IncrementalScenarioConfig) *TestScenarioBuilder {
	b.incremental = cfg
	return b
}

// SetExpectedCheckError sets the error check is expected to fail with.
// Either argument may be empty.
func (b *TestScenarioBuilder) SetExpectedCheckError(err error, message string) *TestScenarioBuilder {
	b.expectedCheckError = ExpectedError{Err: err, Message: message}
	return b
}

// SetExpectedDiscoverError sets the error discover is expected to fail with.
func (b *TestScenarioBuilder) SetExpectedDiscoverError(err error, message string) *TestScenarioBuilder {
	b.expectedDiscoverError = ExpectedError{Err: err, Message: message}
	return b
}

// SetExpectedReadError sets the error read is expected to fail with.
func (b *TestScenarioBuilder) SetExpectedReadError(err error, message string) *TestScenarioBuilder {
	b.expectedReadError = ExpectedError{Err: err, Message: message}
	return b
}

// SetSourceBuilder sets the builder of the scenario's source. Required.
func (b *TestScenarioBuilder) SetSourceBuilder(sb SourceBuilder) *TestScenarioBuilder {
	b.sourceBuilder = sb
	return b
}

// Name returns the scenario name.
func (b *TestScenarioBuilder) Name() string { return b.name }

// SourceBuilder returns the attached source builder, or nil.
func (b *TestScenarioBuilder) SourceBuilder() SourceBuilder { return b.sourceBuilder }

// Copy returns a deep copy of the builder, including its source builder.
func (b *TestScenarioBuilder) Copy() *TestScenarioBuilder {
	out := *b
	out.config = canonical.CopyMap(b.config)
	out.expectedSpec = copySpec(b.expectedSpec)
	out.expectedCatalog = copyCatalog(b.expectedCatalog)
	out.expectedLogs = copyLogs(b.expectedLogs)
	out.expectedRecords = copyRecords(b.expectedRecords)
	out.incremental = b.incremental.Copy()
	if b.sourceBuilder != nil {
		out.sourceBuilder = b.sourceBuilder.Clone()
	}
	return &out
}

// syncMode is incremental when an incremental config is set.
func (b *TestScenarioBuilder) syncMode() protocol.SyncMode {
	if b.incremental != nil {
		return protocol.SyncModeIncremental
	}
	return protocol.SyncModeFullRefresh
}

// Build creates the source over the configured catalog derived from the
// expected catalog, and assembles a validated TestScenario. It fails with
// ErrConfiguration when no source builder was set.
func (b *TestScenarioBuilder) Build() (*TestScenario, error) {
	if b.sourceBuilder == nil {
		return nil, fmt.Errorf("%w: source builder is not set", ErrConfiguration)
	}
	source, err := b.sourceBuilder.Build(copyCatalog(b.expectedCatalog).Configure(b.syncMode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build source for scenario %s: %w", b.name, err)
	}
	return NewTestScenario(Params{
		Name:                  b.name,
		Config:                b.config,
		Source:                source,
		ExpectedSpec:          b.expectedSpec,
		ExpectedCheckStatus:   b.expectedCheckStatus,
		ExpectedCatalog:       b.expectedCatalog,
		ExpectedLogs:          b.expectedLogs,
		ExpectedRecords:       b.expectedRecords,
		ExpectedCheckError:    b.expectedCheckError,
		ExpectedDiscoverError: b.expectedDiscoverError,
		ExpectedReadError:     b.expectedReadError,
		Incremental:           b.incremental,
	})
}
