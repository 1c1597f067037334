// Package scenario builds test scenarios for file-based sources.
//
// A scenario bundles a connector config, a source built over in-memory
// files, and everything a run of spec, check, discover and read is expected
// to produce: the spec, the check status, the catalog, logs, records, errors
// and the final incremental state.
//
// Scenarios are assembled with two fluent builders:
//
//	source := scenario.NewFileBasedSourceBuilder().
//	    SetFiles(files).
//	    SetFileType("csv")
//
//	scn, err := scenario.NewTestScenarioBuilder().
//	    SetName("csv_single_stream").
//	    SetConfig(config).
//	    SetSourceBuilder(source).
//	    SetExpectedCatalog(catalog).
//	    SetExpectedRecords(records).
//	    Build()
//
// Builders are mutable; Copy returns an independent builder so one base
// scenario can be varied without affecting others. A built TestScenario is
// immutable and exposes its data through accessors.
//
// Scenarios can also be loaded from YAML files with LoadScenario.
package scenario
