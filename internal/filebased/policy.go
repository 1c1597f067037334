package filebased

import "context"

// DiscoveryPolicy bounds the work done during discovery.
type DiscoveryPolicy interface {
	// NConcurrentRequests is the maximum number of files inferred at once.
	NConcurrentRequests() int

	// MaxNFilesForSchemaInference is the number of most recent files sampled.
	MaxNFilesForSchemaInference() int
}

// Discovery defaults.
const (
	DefaultNConcurrentRequests         = 10
	DefaultMaxNFilesForSchemaInference = 10
)

// DefaultDiscoveryPolicy uses the package defaults.
type DefaultDiscoveryPolicy struct{}

func (DefaultDiscoveryPolicy) NConcurrentRequests() int         { return DefaultNConcurrentRequests }
func (DefaultDiscoveryPolicy) MaxNFilesForSchemaInference() int { return DefaultMaxNFilesForSchemaInference }

// SchemaValidationPolicy decides what happens to records that do not
// conform to the stream schema.
type SchemaValidationPolicy interface {
	// Name is the policy name used in stream configs.
	Name() string

	// RecordPassesValidationPolicy reports whether record should be emitted.
	RecordPassesValidationPolicy(record map[string]any, schema map[string]any) bool

	// StopsSyncOnMismatch reports whether a failing record aborts the read.
	StopsSyncOnMismatch() bool
}

// EmitRecordPolicy emits every record.
type EmitRecordPolicy struct{}

func (EmitRecordPolicy) Name() string { return PolicyEmitRecord }

func (EmitRecordPolicy) RecordPassesValidationPolicy(map[string]any, map[string]any) bool {
	return true
}

func (EmitRecordPolicy) StopsSyncOnMismatch() bool { return false }

// SkipRecordPolicy drops records that do not conform.
type SkipRecordPolicy struct{}

func (SkipRecordPolicy) Name() string { return PolicySkipRecord }

func (SkipRecordPolicy) RecordPassesValidationPolicy(record, schema map[string]any) bool {
	return conformsToSchema(record, schema)
}

func (SkipRecordPolicy) StopsSyncOnMismatch() bool { return false }

// WaitForDiscoverPolicy stops the sync on the first non-conforming record.
type WaitForDiscoverPolicy struct{}

func (WaitForDiscoverPolicy) Name() string { return PolicyWaitForDiscover }

func (WaitForDiscoverPolicy) RecordPassesValidationPolicy(record, schema map[string]any) bool {
	return conformsToSchema(record, schema)
}

func (WaitForDiscoverPolicy) StopsSyncOnMismatch() bool { return true }

// ValidationPolicies maps policy names to policies.
type ValidationPolicies map[string]SchemaValidationPolicy

// DefaultValidationPolicies returns the three built-in policies.
func DefaultValidationPolicies() ValidationPolicies {
	return ValidationPolicies{
		PolicyEmitRecord:      EmitRecordPolicy{},
		PolicySkipRecord:      SkipRecordPolicy{},
		PolicyWaitForDiscover: WaitForDiscoverPolicy{},
	}
}

// Copy returns a shallow copy of the map.
func (v ValidationPolicies) Copy() ValidationPolicies {
	if v == nil {
		return nil
	}
	out := make(ValidationPolicies, len(v))
	for k, p := range v {
		out[k] = p
	}
	return out
}

// AvailabilityStrategy checks whether a stream can be read.
type AvailabilityStrategy interface {
	// CheckAvailability reports whether the stream's files can be listed.
	CheckAvailability(ctx context.Context, s *Stream) (bool, string)

	// CheckAvailabilityAndParsability also parses the first file.
	CheckAvailabilityAndParsability(ctx context.Context, s *Stream) (bool, string)
}

// DefaultAvailabilityStrategy requires at least one matching file, a
// registered parser, and a parsable first file.
type DefaultAvailabilityStrategy struct{}

// CheckAvailability implements AvailabilityStrategy.
func (DefaultAvailabilityStrategy) CheckAvailability(ctx context.Context, s *Stream) (bool, string) {
	files, err := s.Files(ctx)
	if err != nil {
		return false, err.Error()
	}
	if len(files) == 0 {
		return false, newError(CodeEmptyStream, s.Name(), "", "no files were identified in the stream", nil).Error()
	}
	return true, ""
}

// CheckAvailabilityAndParsability implements AvailabilityStrategy.
func (d DefaultAvailabilityStrategy) CheckAvailabilityAndParsability(ctx context.Context, s *Stream) (bool, string) {
	ok, reason := d.CheckAvailability(ctx, s)
	if !ok {
		return false, reason
	}
	parser, err := s.Parser()
	if err != nil {
		return false, err.Error()
	}
	files, err := s.Files(ctx)
	if err != nil {
		return false, err.Error()
	}
	if _, err := parser.ParseRecords(ctx, s.Config(), files[0], s.reader, nil); err != nil {
		return false, err.Error()
	}
	return true, ""
}
