// Command generate_schema applies every migration to an in-memory database
// and writes the resulting schema for sqlc to read.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"whatsup-go/internal/database"
	"whatsup-go/internal/database/migrations"
)

const header = `-- Generated from internal/database/migrations/files by 'go generate ./internal/database'.
-- Edit the migrations, not this file.

`

func main() {
	out := flag.String("out", filepath.Join("internal", "database", "sqlc", "schema.sql"), "schema output path")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	schema, err := dumpSchema(db)
	if err != nil {
		return err
	}
	return os.WriteFile(out, []byte(header+schema), 0644)
}

// dumpSchema returns the CREATE statements for tables, then indexes, then
// triggers, leaving out SQLite internals and migrate's bookkeeping table.
func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT sql || ';'
		FROM sqlite_master
		WHERE sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type WHEN 'table' THEN 1 WHEN 'index' THEN 2 ELSE 3 END,
		  name
	`)
	if err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scanning schema row: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	return b.String(), nil
}
