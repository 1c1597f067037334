// Package protocol defines the connector protocol types shared by the
// file-based source, the scenario fixtures and the harness.
//
// This package contains type definitions and small helpers only. It imports
// nothing internal so every other package can depend on it.
//
// Key conventions:
//   - All JSON and YAML tags use snake_case
//   - A nil *Catalog means "no catalog"; an empty one is still a catalog
//   - The only destination sync mode produced is "append"
package protocol
