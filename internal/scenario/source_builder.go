package scenario

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/filescenario/internal/canonical"
	"github.com/roach88/filescenario/internal/filebased"
	"github.com/roach88/filescenario/internal/protocol"
)

// FileBasedSourceBuilder accumulates the options of an in-memory file-based
// source. Every setter returns the builder for chaining.
type FileBasedSourceBuilder struct {
	files                map[string]filebased.InMemoryFile
	fileType             string
	availabilityStrategy filebased.AvailabilityStrategy
	discoveryPolicy      filebased.DiscoveryPolicy
	validationPolicies   filebased.ValidationPolicies
	parsers              filebased.Parsers
	streamReader         filebased.StreamReader
	fileWriteOptions     map[string]any
	cursorFactory        filebased.CursorFactory
	now                  func() time.Time
	logger               *slog.Logger
}

// NewFileBasedSourceBuilder returns a builder with no files, the default
// discovery policy and the default parsers.
func NewFileBasedSourceBuilder() *FileBasedSourceBuilder {
	return &FileBasedSourceBuilder{
		files:            map[string]filebased.InMemoryFile{},
		discoveryPolicy:  filebased.DefaultDiscoveryPolicy{},
		parsers:          filebased.DefaultParsers(),
		fileWriteOptions: map[string]any{},
	}
}

// SetFiles sets the in-memory files, keyed by URI.
func (b *FileBasedSourceBuilder) SetFiles(files map[string]filebased.InMemoryFile) *FileBasedSourceBuilder {
	b.files = files
	return b
}

// SetFileType sets the file type used to serialize the files. Required.
func (b *FileBasedSourceBuilder) SetFileType(fileType string) *FileBasedSourceBuilder {
	b.fileType = fileType
	return b
}

// SetParsers replaces the parser registry.
func (b *FileBasedSourceBuilder) SetParsers(parsers filebased.Parsers) *FileBasedSourceBuilder {
	b.parsers = parsers
	return b
}

// SetAvailabilityStrategy sets the strategy used by check.
func (b *FileBasedSourceBuilder) SetAvailabilityStrategy(strategy filebased.AvailabilityStrategy) *FileBasedSourceBuilder {
	b.availabilityStrategy = strategy
	return b
}

// SetDiscoveryPolicy sets the policy bounding schema inference.
func (b *FileBasedSourceBuilder) SetDiscoveryPolicy(policy filebased.DiscoveryPolicy) *FileBasedSourceBuilder {
	b.discoveryPolicy = policy
	return b
}

// SetValidationPolicies replaces the validation policies, keyed by name.
func (b *FileBasedSourceBuilder) SetValidationPolicies(policies filebased.ValidationPolicies) *FileBasedSourceBuilder {
	b.validationPolicies = policies
	return b
}

// SetStreamReader replaces the in-memory stream reader.
func (b *FileBasedSourceBuilder) SetStreamReader(reader filebased.StreamReader) *FileBasedSourceBuilder {
	b.streamReader = reader
	return b
}

// SetCursorFactory sets the function creating each stream's cursor.
func (b *FileBasedSourceBuilder) SetCursorFactory(factory filebased.CursorFactory) *FileBasedSourceBuilder {
	b.cursorFactory = factory
	return b
}

// SetFileWriteOptions sets how file contents are serialized.
func (b *FileBasedSourceBuilder) SetFileWriteOptions(options map[string]any) *FileBasedSourceBuilder {
	b.fileWriteOptions = options
	return b
}

// SetNow sets the clock stamping emitted records.
func (b *FileBasedSourceBuilder) SetNow(now func() time.Time) *FileBasedSourceBuilder {
	b.now = now
	return b
}

// SetLogger sets the logger of the built source.
func (b *FileBasedSourceBuilder) SetLogger(logger *slog.Logger) *FileBasedSourceBuilder {
	b.logger = logger
	return b
}

// FileType returns the configured file type.
func (b *FileBasedSourceBuilder) FileType() string { return b.fileType }

// Files returns the configured files.
func (b *FileBasedSourceBuilder) Files() map[string]filebased.InMemoryFile { return b.files }

// Build creates the source. It fails with ErrConfiguration when no file
// type was set.
func (b *FileBasedSourceBuilder) Build(configured *protocol.ConfiguredCatalog) (Source, error) {
	if b.fileType == "" {
		return nil, fmt.Errorf("%w: file type is not set", ErrConfiguration)
	}
	return filebased.NewSource(filebased.Options{
		Files:                copyFiles(b.files),
		FileType:             b.fileType,
		AvailabilityStrategy: b.availabilityStrategy,
		DiscoveryPolicy:      b.discoveryPolicy,
		ValidationPolicies:   b.validationPolicies.Copy(),
		Parsers:              b.parsers.Copy(),
		StreamReader:         b.streamReader,
		ConfiguredCatalog:    configured,
		FileWriteOptions:     canonical.CopyMap(b.fileWriteOptions),
		CursorFactory:        b.cursorFactory,
		Now:                  b.now,
		Logger:               b.logger,
	}), nil
}

// Copy returns a deep copy of the builder. Files, write options, parsers
// and validation policies are copied. The stream reader, availability
// strategy and discovery policy are cloned when they implement
// Clone() returning their own interface type, and shared otherwise. The
// cursor factory and the clock are always shared.
func (b *FileBasedSourceBuilder) Copy() *FileBasedSourceBuilder {
	out := *b
	out.files = copyFiles(b.files)
	out.fileWriteOptions = canonical.CopyMap(b.fileWriteOptions)
	out.parsers = b.parsers.Copy()
	out.validationPolicies = b.validationPolicies.Copy()
	out.streamReader = cloneIfSupported(b.streamReader)
	out.availabilityStrategy = cloneIfSupported(b.availabilityStrategy)
	out.discoveryPolicy = cloneIfSupported(b.discoveryPolicy)
	return &out
}

// cloneIfSupported returns v.Clone() when v has a Clone method returning T,
// and v itself otherwise. A nil v is returned unchanged.
func cloneIfSupported[T any](v T) T {
	if c, ok := any(v).(interface{ Clone() T }); ok {
		return c.Clone()
	}
	return v
}

// Clone implements SourceBuilder.
func (b *FileBasedSourceBuilder) Clone() SourceBuilder {
	return b.Copy()
}

func copyFiles(files map[string]filebased.InMemoryFile) map[string]filebased.InMemoryFile {
	if files == nil {
		return nil
	}
	out := make(map[string]filebased.InMemoryFile, len(files))
	for uri, f := range files {
		out[uri] = filebased.InMemoryFile{
			Contents:     canonical.DeepCopy(f.Contents),
			LastModified: f.LastModified,
		}
	}
	return out
}
