package database

import _ "embed"

// Schema is the flattened schema produced by applying every migration.
// Tests apply it directly instead of running migrations.
//
//go:embed sqlc/schema.sql
var Schema string
