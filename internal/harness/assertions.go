package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/filescenario/internal/canonical"
	"github.com/roach88/filescenario/internal/protocol"
	"github.com/roach88/filescenario/internal/scenario"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Operation string // spec, check, discover or read
	Subject   string // What was compared, e.g. "catalog"
	Expected  string // Human-readable expected outcome
	Actual    string // Human-readable actual outcome
	Diff      string // cmp.Diff output (-want +got), if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s: %s mismatch", e.Operation, e.Subject)
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	}
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\n  Diff (-want +got):\n%s", indent(e.Diff, "    "))
	}
	return buf.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// assertEqual compares want and got by canonical JSON. On mismatch the diff
// is computed over the generic JSON form of both values.
func assertEqual(op, subject string, want, got any) error {
	eq, err := canonical.Equal(want, got)
	if err != nil {
		return fmt.Errorf("%s: cannot compare %s: %w", op, subject, err)
	}
	if eq {
		return nil
	}
	return &AssertionError{
		Operation: op,
		Subject:   subject,
		Diff:      cmp.Diff(jsonValue(want), jsonValue(got)),
	}
}

// jsonValue round-trips v through canonical JSON so numbers from YAML and
// from the store diff as the same type.
func jsonValue(v any) any {
	data, err := canonical.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return out
}

// assertError checks err against an expected error. It returns nil when the
// expectation is unset, leaving unexpected errors to the caller.
func assertError(op string, expected scenario.ExpectedError, err error) error {
	if !expected.IsSet() || expected.Matches(err) {
		return nil
	}
	actual := "no error"
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Operation: op,
		Subject:   "error",
		Expected:  expected.String(),
		Actual:    actual,
	}
}

// assertCheck checks the outcome of check. A check that returns a FAILED
// status without an error satisfies an expected check error whose message
// is contained in the status message.
func assertCheck(scn *scenario.TestScenario, status protocol.ConnectionStatus, err error) []error {
	expected := scn.ExpectedCheckError()
	if expected.IsSet() {
		if err == nil && status.Status == protocol.StatusFailed {
			if strings.Contains(status.Message, expected.Message) {
				return nil
			}
			return []error{&AssertionError{
				Operation: "check",
				Subject:   "error",
				Expected:  expected.String(),
				Actual:    fmt.Sprintf("%s: %s", status.Status, status.Message),
			}}
		}
		return []error{assertError("check", expected, err)}
	}
	if err != nil {
		return []error{fmt.Errorf("check: unexpected error: %w", err)}
	}
	if want := scn.ExpectedCheckStatus(); want != "" && status.Status != want {
		return []error{&AssertionError{
			Operation: "check",
			Subject:   "status",
			Expected:  want,
			Actual:    fmt.Sprintf("%s %s", status.Status, status.Message),
		}}
	}
	return nil
}

// assertRecords compares records in order, ignoring emitted_at.
func assertRecords(expected, actual []protocol.RecordMessage) error {
	return assertEqual("read", "records", recordValues(expected), recordValues(actual))
}

func recordValues(records []protocol.RecordMessage) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = map[string]any{"stream": r.Stream, "data": r.Data}
	}
	return out
}

// assertLogs compares log messages in order.
func assertLogs(op string, expected, actual []protocol.LogMessage) error {
	if expected == nil {
		expected = []protocol.LogMessage{}
	}
	if actual == nil {
		actual = []protocol.LogMessage{}
	}
	return assertEqual(op, "logs", expected, actual)
}

// assertOutputState compares the final state of every stream.
func assertOutputState(expected map[string]any, actual map[string]map[string]any) error {
	got := make(map[string]any, len(actual))
	for stream, state := range actual {
		got[stream] = state
	}
	return assertEqual("read", "output state", expected, got)
}
