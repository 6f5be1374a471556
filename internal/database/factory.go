package database

import (
	"fmt"
	"os"
	"path/filepath"

	"whatsup-go/internal/config"
	"whatsup-go/internal/whatsup"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// Memory databases are migrated on creation since they start empty every time.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (whatsup.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		db, err := NewSQLiteDatabase(filepath.Join(cfg.DataDir, "whatsup.db"), nil, nil)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		db, err := NewSQLiteDatabase(":memory:", nil, nil)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating memory database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
