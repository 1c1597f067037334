package protocol

import "fmt"

// SyncMode tags a configured stream with how it is read.
type SyncMode string

const (
	SyncModeFullRefresh SyncMode = "full_refresh"
	SyncModeIncremental SyncMode = "incremental"
)

// DestinationSyncModeAppend is the destination mode attached to every
// configured stream.
const DestinationSyncModeAppend = "append"

// ParseSyncMode converts a string into a SyncMode.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case SyncModeFullRefresh, SyncModeIncremental:
		return SyncMode(s), nil
	default:
		return "", fmt.Errorf("unknown sync mode %q: must be %q or %q", s, SyncModeFullRefresh, SyncModeIncremental)
	}
}

// Stream describes one stream exposed by a source.
type Stream struct {
	Name                    string         `json:"name" yaml:"name"`
	JSONSchema              map[string]any `json:"json_schema" yaml:"json_schema"`
	SupportedSyncModes      []SyncMode     `json:"supported_sync_modes,omitempty" yaml:"supported_sync_modes,omitempty"`
	SourceDefinedCursor     bool           `json:"source_defined_cursor,omitempty" yaml:"source_defined_cursor,omitempty"`
	DefaultCursorField      []string       `json:"default_cursor_field,omitempty" yaml:"default_cursor_field,omitempty"`
	SourceDefinedPrimaryKey [][]string     `json:"source_defined_primary_key,omitempty" yaml:"source_defined_primary_key,omitempty"`
}

// Catalog lists the streams a source exposes.
type Catalog struct {
	Streams []Stream `json:"streams" yaml:"streams"`
}

// StreamNames returns stream names in catalog order.
func (c *Catalog) StreamNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Streams))
	for _, s := range c.Streams {
		names = append(names, s.Name)
	}
	return names
}

// Configure wraps every stream with the given sync mode and the append
// destination mode. A nil catalog configures to nil.
func (c *Catalog) Configure(mode SyncMode) *ConfiguredCatalog {
	if c == nil {
		return nil
	}
	configured := &ConfiguredCatalog{Streams: make([]ConfiguredStream, 0, len(c.Streams))}
	for _, s := range c.Streams {
		configured.Streams = append(configured.Streams, ConfiguredStream{
			Stream:              s,
			SyncMode:            mode,
			DestinationSyncMode: DestinationSyncModeAppend,
		})
	}
	return configured
}

// ConfiguredStream is a stream selected for reading.
type ConfiguredStream struct {
	Stream              Stream   `json:"stream" yaml:"stream"`
	SyncMode            SyncMode `json:"sync_mode" yaml:"sync_mode"`
	DestinationSyncMode string   `json:"destination_sync_mode" yaml:"destination_sync_mode"`
}

// ConfiguredCatalog is the set of streams a read operates on.
type ConfiguredCatalog struct {
	Streams []ConfiguredStream `json:"streams" yaml:"streams"`
}

// Stream returns the configured stream with the given name.
func (c *ConfiguredCatalog) Stream(name string) (ConfiguredStream, bool) {
	if c == nil {
		return ConfiguredStream{}, false
	}
	for _, s := range c.Streams {
		if s.Stream.Name == name {
			return s, true
		}
	}
	return ConfiguredStream{}, false
}

// ConnectorSpec is returned by a source's spec operation.
type ConnectorSpec struct {
	DocumentationURL        string         `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
	ConnectionSpecification map[string]any `json:"connection_specification" yaml:"connection_specification"`
}

// Connection status values.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// ConnectionStatus is returned by a source's check operation.
type ConnectionStatus struct {
	Status  string `json:"status" yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}
