package filebased

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/filescenario/internal/protocol"
)

// Stream reads the files of one configured stream.
type Stream struct {
	cfg          StreamConfig
	reader       StreamReader
	parsers      Parsers
	policy       SchemaValidationPolicy
	discovery    DiscoveryPolicy
	availability AvailabilityStrategy
	cursor       Cursor
	startDate    time.Time
	logger       *slog.Logger
}

// Name returns the stream name.
func (s *Stream) Name() string { return s.cfg.Name }

// Config returns the stream config.
func (s *Stream) Config() StreamConfig { return s.cfg }

// Cursor returns the stream's cursor.
func (s *Stream) Cursor() Cursor { return s.cursor }

// ValidationPolicy returns the policy applied to records during a read.
func (s *Stream) ValidationPolicy() SchemaValidationPolicy { return s.policy }

// Files returns the files matching the stream's globs, excluding files
// modified before the config start date.
func (s *Stream) Files(ctx context.Context) ([]RemoteFile, error) {
	files, err := s.reader.GetMatchingFiles(ctx, s.cfg.Globs)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for stream %s: %w", s.cfg.Name, err)
	}
	if s.startDate.IsZero() {
		return files, nil
	}
	out := make([]RemoteFile, 0, len(files))
	for _, f := range files {
		if !f.LastModified.Before(s.startDate) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Parser returns the parser registered for the stream's file type.
func (s *Stream) Parser() (FileTypeParser, error) {
	p, ok := s.parsers[s.cfg.FileType]
	if !ok {
		return nil, newError(CodeUndefinedParser, s.cfg.Name, "",
			fmt.Sprintf("no parser is defined for file type %q", s.cfg.FileType), nil)
	}
	return p, nil
}

// JSONSchema returns the stream's schema including the source file fields.
// A configured input schema takes precedence over inference.
func (s *Stream) JSONSchema(ctx context.Context) (map[string]any, error) {
	if s.cfg.InputSchema != "" {
		schema, err := parseInputSchema(s.cfg.InputSchema)
		if err != nil {
			return nil, newError(CodeInvalidSchema, s.cfg.Name, "", "input_schema is not a valid JSON schema", err)
		}
		return withFileFields(schema), nil
	}
	schema, err := s.inferSchema(ctx)
	if err != nil {
		return nil, err
	}
	return withFileFields(schema), nil
}

// inferSchema merges the schemas of the most recent files, inferring them
// concurrently.
func (s *Stream) inferSchema(ctx context.Context) (map[string]any, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return newObjectSchema(nil), nil
	}
	parser, err := s.Parser()
	if err != nil {
		return nil, err
	}
	if n := s.discovery.MaxNFilesForSchemaInference(); n > 0 && len(files) > n {
		files = files[len(files)-n:]
	}

	schemas := make([]map[string]any, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if n := s.discovery.NConcurrentRequests(); n > 0 {
		g.SetLimit(n)
	}
	for i, f := range files {
		g.Go(func() error {
			schema, err := parser.InferSchema(gctx, s.cfg, f, s.reader)
			if err != nil {
				return err
			}
			schemas[i] = schema
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newObjectSchema(nil)
	for i, schema := range schemas {
		merged, err = mergeSchemas(merged, schema)
		if err != nil {
			return nil, newError(CodeSchemaInference, s.cfg.Name, files[i].URI, "cannot merge schemas across files", err)
		}
	}
	return merged, nil
}

// CatalogStream describes the stream for a discovered catalog.
func (s *Stream) CatalogStream(ctx context.Context) (protocol.Stream, error) {
	schema, err := s.JSONSchema(ctx)
	if err != nil {
		return protocol.Stream{}, err
	}
	out := protocol.Stream{
		Name:                s.cfg.Name,
		JSONSchema:          schema,
		SupportedSyncModes:  []protocol.SyncMode{protocol.SyncModeFullRefresh, protocol.SyncModeIncremental},
		SourceDefinedCursor: true,
		DefaultCursorField:  []string{FieldLastModified},
	}
	if s.cfg.PrimaryKey != "" {
		out.SourceDefinedPrimaryKey = [][]string{{s.cfg.PrimaryKey}}
	}
	return out, nil
}

// validationSchema is the schema records are checked against: the input
// schema, then the schema of the configured stream. nil means no validation.
func (s *Stream) validationSchema(catalogSchema map[string]any) (map[string]any, error) {
	if s.cfg.InputSchema != "" {
		schema, err := parseInputSchema(s.cfg.InputSchema)
		if err != nil {
			return nil, newError(CodeInvalidSchema, s.cfg.Name, "", "input_schema is not a valid JSON schema", err)
		}
		return schema, nil
	}
	return catalogSchema, nil
}

// fileResult is the outcome of reading one file.
type fileResult struct {
	records []map[string]any
	skipped int
}

// readFile parses file and applies the validation policy. Emitted records
// carry the source file fields.
func (s *Stream) readFile(ctx context.Context, file RemoteFile, schema map[string]any) (fileResult, error) {
	var res fileResult
	parser, err := s.Parser()
	if err != nil {
		return res, err
	}
	records, err := parser.ParseRecords(ctx, s.cfg, file, s.reader, schema)
	if err != nil {
		return res, err
	}
	for _, rec := range records {
		if !s.policy.RecordPassesValidationPolicy(rec, schema) {
			if s.policy.StopsSyncOnMismatch() {
				return res, newError(CodeStopSyncPerValidationPolicy, s.cfg.Name, file.URI,
					"stopping sync in accordance with the configured validation policy. Records in file did not conform to the schema", nil)
			}
			res.skipped++
			continue
		}
		out := make(map[string]any, len(rec)+2)
		for k, v := range rec {
			out[k] = v
		}
		out[FieldLastModified] = FormatTime(file.LastModified)
		out[FieldFileURL] = file.URI
		res.records = append(res.records, out)
	}
	return res, nil
}
