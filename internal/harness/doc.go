// Package harness runs file-based source scenarios and checks their
// expectations.
//
// A scenario is built with scenario.TestScenarioBuilder (or loaded from YAML
// with scenario.LoadScenario) and executed with Run:
//
//	scn, err := builder.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
//
// # Operations
//
// Run executes spec, check, discover and read in that order. Each operation
// is checked against the expectations the scenario sets:
//
//   - spec: the expected connector spec
//   - check: the expected status, or the expected check error
//   - discover: the expected catalog and discover logs, or the expected error
//   - read: records (emitted_at ignored), read logs and, for incremental
//     scenarios, the final state of every stream; or the expected read error
//
// Values are compared as canonical JSON, so integers from YAML match the
// numbers decoded from the store.
//
// # Deterministic Testing
//
// Read messages are written to a SQLite store before they are checked. The
// harness uses:
//   - Deterministic logical clock (testutil.DeterministicClock) for message seq
//   - In-memory SQLite database (isolated per run) unless WithStore is given
//   - UUIDv7 run IDs, or a fixed ID under RunWithGolden
//
// This ensures identical snapshots across runs for golden file comparison.
package harness
