// Package store provides SQLite-backed storage for scenario read logs.
//
// Every harness run of a scenario read is recorded as:
//   - Runs: one row per read, with the scenario name and sync mode
//   - Messages: records, states and logs in emission order
//
// # Ordering
//
// Messages are ordered by seq INTEGER, a logical clock assigned by the
// writer. Timestamps such as emitted_at never affect ordering, so two runs of
// the same scenario produce identical message logs apart from emitted_at.
// All queries include ORDER BY seq ASC.
//
// # Payloads
//
// Payloads are stored as canonical JSON (sorted keys, NFC strings, no HTML
// escaping) and decoded with json.Number so large integers survive.
//
// # Migrations
//
// PRAGMA user_version records how many upgrades a run log has received.
// Open applies the missing ones in order, one transaction each, and refuses
// a log written by a newer schema.
package store
