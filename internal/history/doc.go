// Package history keeps a local SQLite index of project saves, loads,
// conversions, and exports so the CLI can show what happened to which
// project and when.
//
// The database lives at paths.data_dir/history.db. Schema changes ship as
// embedded, lexically ordered migrations recorded in schema_migrations.
package history
