package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/filescenario/internal/protocol"
	"github.com/roach88/filescenario/internal/scenario"
	"github.com/roach88/filescenario/internal/store"
	"github.com/roach88/filescenario/internal/testutil"
)

// SeqClock numbers the messages of a run.
type SeqClock interface {
	Next() int64
}

// RunIDGenerator names runs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures a harness run.
type Option func(*Harness)

// WithStore records the read in st instead of a fresh in-memory store.
// The caller owns st and must close it.
func WithStore(st *store.Store) Option {
	return func(h *Harness) { h.store = st }
}

// WithLogger sets the harness logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithClock sets the clock numbering stored messages.
func WithClock(clock SeqClock) Option {
	return func(h *Harness) { h.clock = clock }
}

// WithRunIDGenerator sets the generator naming the stored run.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(h *Harness) { h.runIDs = gen }
}

// Harness executes one scenario against its source.
type Harness struct {
	store  *store.Store
	clock  SeqClock
	runIDs RunIDGenerator
	logger *slog.Logger
}

// Run executes every operation of a scenario and checks its expectations.
//
// Execution flow:
//  1. spec: compared when an expected spec is set
//  2. check: expected status or expected error
//  3. discover: expected catalog, discover logs or expected error
//  4. read: records, read logs, final state or expected error. The read
//     messages are stored and every read expectation is evaluated from the
//     store.
//
// Expectation failures are reported in the Result. The returned error is
// reserved for harness failures such as an unusable store.
func Run(ctx context.Context, scn *scenario.TestScenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		runIDs: UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.store == nil {
		st, err := store.Open(store.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		h.store = st
	}

	result := NewResult(scn.Name(), scn.SyncMode())
	src := scn.Source()
	config := scn.Config()

	if want := scn.ExpectedSpec(); want != nil {
		result.addErrors(assertEqual("spec", "connector spec", want, src.Spec()))
	}

	status, err := src.Check(ctx, config)
	result.addErrors(assertCheck(scn, status, err)...)
	h.logger.Debug("check completed", "scenario", scn.Name(), "status", status.Status, "error", err)

	discovered := h.discover(ctx, scn, result)

	if err := h.read(ctx, scn, discovered, result); err != nil {
		return nil, err
	}

	h.logger.Info("scenario completed",
		"scenario", scn.Name(),
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// discover runs discover and returns the discovered catalog, or nil if it
// failed.
func (h *Harness) discover(ctx context.Context, scn *scenario.TestScenario, result *Result) *protocol.Catalog {
	catalog, logs, err := scn.Source().Discover(ctx, scn.Config())
	h.logger.Debug("discover completed", "scenario", scn.Name(), "error", err)

	if expected := scn.ExpectedDiscoverError(); expected.IsSet() {
		result.addErrors(assertError("discover", expected, err))
		return nil
	}
	if err != nil {
		result.AddError(fmt.Sprintf("discover: unexpected error: %v", err))
		return nil
	}
	if want := scn.ExpectedCatalog(); want != nil {
		result.addErrors(assertEqual("discover", "catalog", want, catalog))
	}
	if want, ok := scn.ExpectedLogs()[scenario.OpDiscover]; ok {
		result.addErrors(assertLogs("discover", want, logs))
	}
	return catalog
}

// read runs the read, stores its messages and checks them. Without an
// expected catalog the read uses the discovered catalog, and is skipped
// unless the scenario expects records or a read error.
func (h *Harness) read(ctx context.Context, scn *scenario.TestScenario, discovered *protocol.Catalog, result *Result) error {
	mode := scn.SyncMode()
	configured := scn.ConfiguredCatalog(mode)
	if configured == nil {
		if len(scn.ExpectedRecords()) == 0 && !scn.ExpectedReadError().IsSet() {
			return nil
		}
		configured = discovered.Configure(mode)
	}

	msgs, readErr := scn.Source().Read(ctx, scn.Config(), configured, scn.InputState())
	h.logger.Debug("read completed", "scenario", scn.Name(), "messages", len(msgs), "error", readErr)

	runID, err := h.record(ctx, scn.Name(), mode, msgs)
	if err != nil {
		return err
	}
	result.RunID = runID

	stored, err := h.store.ReadMessages(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read messages of run %s: %w", runID, err)
	}
	for _, m := range stored {
		result.Trace = append(result.Trace, traceEvent(m))
	}

	if expected := scn.ExpectedReadError(); expected.IsSet() {
		result.addErrors(assertError("read", expected, readErr))
		return nil
	}
	if readErr != nil {
		result.AddError(fmt.Sprintf("read: unexpected error: %v", readErr))
		return nil
	}

	records, err := h.store.ReadRecords(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read records of run %s: %w", runID, err)
	}
	result.addErrors(assertRecords(scn.ExpectedRecords(), records))

	if want, ok := scn.ExpectedLogs()[scenario.OpRead]; ok {
		logs, err := h.store.ReadLogs(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to read logs of run %s: %w", runID, err)
		}
		result.addErrors(assertLogs("read", want, logs))
	}

	if mode == protocol.SyncModeIncremental {
		states, err := h.store.LatestStates(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to read states of run %s: %w", runID, err)
		}
		result.States = states
		if inc := scn.Incremental(); inc != nil && inc.ExpectedOutputState != nil {
			result.addErrors(assertOutputState(inc.ExpectedOutputState, states))
		}
	}
	return nil
}

// record stores the messages of a read under a new run.
func (h *Harness) record(ctx context.Context, name string, mode protocol.SyncMode, msgs []protocol.Message) (string, error) {
	seq, err := h.store.NextRunSeq(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to allocate run: %w", err)
	}
	run := store.Run{ID: h.runIDs.Generate(), Scenario: name, SyncMode: mode, Seq: seq}
	if err := h.store.WriteRun(ctx, run); err != nil {
		return "", fmt.Errorf("failed to write run: %w", err)
	}
	if _, err := h.store.WriteMessages(ctx, run.ID, msgs, h.clock.Next); err != nil {
		return "", fmt.Errorf("failed to write messages of run %s: %w", run.ID, err)
	}
	return run.ID, nil
}
