package filebased

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/filescenario/internal/protocol"
)

// Log messages emitted as protocol logs.
const (
	msgEmptyStream = "No files were identified in the stream. This may be because there are no files in the specified container, or because your glob patterns did not match any files. Please verify that your source contains files last modified after the start_date and that your glob patterns are not overly strict."
	msgSkipped     = "Records in file did not pass validation policy."
)

// Options configures an in-memory file-based source. Zero values select
// the package defaults.
type Options struct {
	// Files are served by the default in-memory stream reader, keyed by URI.
	Files map[string]InMemoryFile

	// FileType selects how Files contents are serialized.
	FileType string

	AvailabilityStrategy AvailabilityStrategy
	DiscoveryPolicy      DiscoveryPolicy
	ValidationPolicies   ValidationPolicies
	Parsers              Parsers

	// StreamReader replaces the in-memory reader over Files.
	StreamReader StreamReader

	// ConfiguredCatalog is read when Read is given no catalog.
	ConfiguredCatalog *protocol.ConfiguredCatalog

	// FileWriteOptions tune csv serialization of Files.
	FileWriteOptions map[string]any

	CursorFactory CursorFactory

	// Now stamps emitted records.
	Now func() time.Time

	Logger *slog.Logger
}

// Source is a file-based source over in-memory files.
type Source struct {
	opts   Options
	reader StreamReader
	logger *slog.Logger
}

// NewSource creates a source, filling in defaults for unset options.
func NewSource(opts Options) *Source {
	if opts.AvailabilityStrategy == nil {
		opts.AvailabilityStrategy = DefaultAvailabilityStrategy{}
	}
	if opts.DiscoveryPolicy == nil {
		opts.DiscoveryPolicy = DefaultDiscoveryPolicy{}
	}
	if opts.ValidationPolicies == nil {
		opts.ValidationPolicies = DefaultValidationPolicies()
	}
	if opts.Parsers == nil {
		opts.Parsers = DefaultParsers()
	}
	if opts.CursorFactory == nil {
		opts.CursorFactory = NewDefaultCursor
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reader := opts.StreamReader
	if reader == nil {
		reader = NewInMemoryStreamReader(opts.Files, opts.FileType, opts.FileWriteOptions)
	}
	return &Source{opts: opts, reader: reader, logger: opts.Logger}
}

// Spec returns the connector spec.
func (s *Source) Spec() protocol.ConnectorSpec {
	return ConnectorSpec()
}

// Streams builds one Stream per configured stream.
func (s *Source) Streams(config map[string]any) ([]*Stream, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	var startDate time.Time
	if cfg.StartDate != "" {
		startDate, err = ParseTime(cfg.StartDate)
		if err != nil {
			return nil, newError(CodeConfigValidation, "", "", "invalid start_date", err)
		}
	}

	streams := make([]*Stream, 0, len(cfg.Streams))
	for _, sc := range cfg.Streams {
		policy, ok := s.opts.ValidationPolicies[sc.ValidationPolicy]
		if !ok {
			return nil, newError(CodeConfigValidation, sc.Name, "",
				fmt.Sprintf("validation policy %q is not registered", sc.ValidationPolicy), nil)
		}
		streams = append(streams, &Stream{
			cfg:          sc,
			reader:       s.reader,
			parsers:      s.opts.Parsers,
			policy:       policy,
			discovery:    s.opts.DiscoveryPolicy,
			availability: s.opts.AvailabilityStrategy,
			cursor:       s.opts.CursorFactory(sc),
			startDate:    startDate,
			logger:       s.logger.With("stream", sc.Name),
		})
	}
	return streams, nil
}

// StreamNames returns the names of the configured streams.
func (s *Source) StreamNames(config map[string]any) ([]string, error) {
	streams, err := s.Streams(config)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(streams))
	for _, st := range streams {
		names = append(names, st.Name())
	}
	return names, nil
}

// Check verifies every stream is available and parsable. Config errors are
// returned as errors; unavailable streams yield a FAILED status.
func (s *Source) Check(ctx context.Context, config map[string]any) (protocol.ConnectionStatus, error) {
	streams, err := s.Streams(config)
	if err != nil {
		return protocol.ConnectionStatus{}, err
	}
	for _, st := range streams {
		ok, reason := st.availability.CheckAvailabilityAndParsability(ctx, st)
		if !ok {
			s.logger.Info("check failed", "stream", st.Name(), "reason", reason)
			return protocol.ConnectionStatus{Status: protocol.StatusFailed, Message: reason}, nil
		}
	}
	return protocol.ConnectionStatus{Status: protocol.StatusSucceeded}, nil
}

// Discover returns the catalog of configured streams and the logs emitted
// while discovering them.
func (s *Source) Discover(ctx context.Context, config map[string]any) (*protocol.Catalog, []protocol.LogMessage, error) {
	streams, err := s.Streams(config)
	if err != nil {
		return nil, nil, err
	}
	var logs []protocol.LogMessage
	catalog := &protocol.Catalog{Streams: make([]protocol.Stream, 0, len(streams))}
	for _, st := range streams {
		files, err := st.Files(ctx)
		if err != nil {
			return nil, logs, err
		}
		if len(files) == 0 {
			st.logger.Warn("no files matched", "globs", st.cfg.Globs)
			logs = append(logs, protocol.LogMessage{Level: protocol.LogLevelWarn, Message: msgEmptyStream})
		}
		cs, err := st.CatalogStream(ctx)
		if err != nil {
			return nil, logs, err
		}
		catalog.Streams = append(catalog.Streams, cs)
	}
	return catalog, logs, nil
}

// Read syncs every stream in catalog, or in the source's configured catalog
// when catalog is nil. In incremental mode a state message follows each
// synced file. Messages emitted before a failure are returned with the
// error.
func (s *Source) Read(ctx context.Context, config map[string]any, catalog *protocol.ConfiguredCatalog, state []protocol.StateMessage) ([]protocol.Message, error) {
	if catalog == nil {
		catalog = s.opts.ConfiguredCatalog
	}
	if catalog == nil {
		return nil, nil
	}
	streams, err := s.Streams(config)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*Stream, len(streams))
	for _, st := range streams {
		byName[st.Name()] = st
	}
	inputState := make(map[string]map[string]any, len(state))
	for _, sm := range state {
		inputState[sm.Stream] = sm.State
	}

	var out []protocol.Message
	for _, cs := range catalog.Streams {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		st, ok := byName[cs.Stream.Name]
		if !ok {
			return out, newError(CodeUnknownStream, cs.Stream.Name, "", "stream is not defined in the config", nil)
		}
		msgs, err := s.readStream(ctx, st, cs, inputState[st.Name()])
		out = append(out, msgs...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *Source) readStream(ctx context.Context, st *Stream, cs protocol.ConfiguredStream, state map[string]any) ([]protocol.Message, error) {
	schema, err := st.validationSchema(cs.Stream.JSONSchema)
	if err != nil {
		return nil, err
	}
	files, err := st.Files(ctx)
	if err != nil {
		return nil, err
	}
	incremental := cs.SyncMode == protocol.SyncModeIncremental
	if incremental {
		if err := st.cursor.SetInitialState(state); err != nil {
			return nil, newError(CodeConfigValidation, st.Name(), "", "invalid input state", err)
		}
		files = st.cursor.GetFilesToSync(files, st.logger)
	}

	var out []protocol.Message
	for _, f := range files {
		res, err := st.readFile(ctx, f, schema)
		if err != nil {
			st.logger.Error("read failed", "file", f.URI, "error", err)
			return out, err
		}
		emittedAt := s.opts.Now().UnixMilli()
		for _, rec := range res.records {
			out = append(out, protocol.NewRecord(protocol.RecordMessage{
				Stream:    st.Name(),
				Data:      rec,
				EmittedAt: emittedAt,
			}))
		}
		if res.skipped > 0 {
			st.logger.Warn("records skipped", "file", f.URI, "n_skipped", res.skipped)
			out = append(out, protocol.NewLog(protocol.LogLevelWarn, fmt.Sprintf(
				"%s stream=%s file=%s n_skipped=%d validation_policy=%s",
				msgSkipped, st.Name(), f.URI, res.skipped, st.policy.Name())))
		}
		if incremental {
			st.cursor.AddFile(f)
			out = append(out, protocol.NewState(protocol.StateMessage{
				Stream: st.Name(),
				State:  st.cursor.GetState(),
			}))
		}
	}
	return out, nil
}
