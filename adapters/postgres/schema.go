package postgres

import _ "embed"

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the observation store tables. Statements
// are idempotent, so applying it to a live database is safe.
func Schema() string {
	return schemaSQL
}
