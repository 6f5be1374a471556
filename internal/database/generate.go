package database

// Schema and query code are generated from the migrations:
//
//	go generate ./internal/database
//
// The first step writes sqlc/schema.sql, the second regenerates the sqlc package
// from it and sqlc/query.sql.

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
