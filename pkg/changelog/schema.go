package changelog

import "embed"

// EntrySchemaName is the schema file name inside EntrySchemaFS.
const EntrySchemaName = "entry-schema.json"

// EntrySchemaFS contains the embedded JSON schema describing the cache-entry
// wire format.
//
//go:embed entry-schema.json
var EntrySchemaFS embed.FS
