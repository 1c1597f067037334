package filebased

import "github.com/roach88/filescenario/internal/protocol"

// DocumentationURL is reported in the connector spec.
const DocumentationURL = "https://docs.airbyte.com/integrations/sources/in-memory-files"

// ConnectorSpec returns the spec of the in-memory file-based source: the
// JSON schema its config must satisfy. It mirrors config.cue.
func ConnectorSpec() protocol.ConnectorSpec {
	stream := map[string]any{
		"title":    "FileBasedStreamConfig",
		"type":     "object",
		"required": []any{"name", "file_type"},
		"properties": map[string]any{
			"name": map[string]any{
				"title":       "Name",
				"description": "The name of the stream.",
				"type":        "string",
			},
			"file_type": map[string]any{
				"title":       "File Type",
				"description": "The data file type that is being extracted for a stream.",
				"type":        "string",
			},
			"globs": map[string]any{
				"title":       "Globs",
				"description": "The pattern used to specify which files should be selected from the file system.",
				"type":        "array",
				"items":       map[string]any{"type": "string"},
			},
			"validation_policy": map[string]any{
				"title":       "Validation Policy",
				"description": "The name of the validation policy that dictates sync behavior when a record does not adhere to the stream schema.",
				"default":     DefaultValidationPolicy,
				"enum":        []any{PolicyEmitRecord, PolicySkipRecord, PolicyWaitForDiscover},
			},
			"input_schema": map[string]any{
				"title":       "Input Schema",
				"description": "The schema that will be used to validate records extracted from the file. This will override the stream schema that is auto-detected from incoming files.",
				"type":        "string",
			},
			"primary_key": map[string]any{
				"title":       "Primary Key",
				"description": "The column or columns (for a composite key) that serves as the unique identifier of a record.",
				"type":        "string",
			},
			"days_to_sync_if_history_is_full": map[string]any{
				"title":       "Days To Sync If History Is Full",
				"description": "When the state history of the file store is full, syncs will only read files that were last modified in the provided day range.",
				"default":     DefaultDaysToSyncIfHistoryIsFull,
				"type":        "integer",
			},
			"format": map[string]any{
				"title":       "Format",
				"description": "The configuration options that are used to alter how to read incoming files that deviate from the standard formatting.",
				"type":        "object",
			},
		},
	}

	return protocol.ConnectorSpec{
		DocumentationURL: DocumentationURL,
		ConnectionSpecification: map[string]any{
			"title":    "InMemorySpec",
			"type":     "object",
			"required": []any{"streams"},
			"properties": map[string]any{
				"start_date": map[string]any{
					"title":       "Start Date",
					"description": "UTC date and time in the format 2017-01-25T00:00:00.000000Z. Any file modified before this date will not be replicated.",
					"type":        "string",
				},
				"streams": map[string]any{
					"title":       "The list of streams to sync",
					"description": "Each instance of this configuration defines a stream.",
					"type":        "array",
					"items":       stream,
				},
			},
		},
	}
}
