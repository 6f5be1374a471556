package testutil

import (
	"testing"

	"whatsup-go/internal/database"
	"whatsup-go/internal/model"
	"whatsup-go/internal/whatsup"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T, clock whatsup.Clock) whatsup.Database {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, clock, nil)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// MustCreateUser creates a user or fails the test.
func MustCreateUser(t *testing.T, db whatsup.Database, address string) *model.User {
	t.Helper()
	u, err := db.CreateUser(address)
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", address, err)
	}
	return u
}

// MustCreateWatch creates a watch with the given rules or fails the test.
// Rules prefixed with "!" are MustNotMatch.
func MustCreateWatch(t *testing.T, db whatsup.Database, user *model.User, address string, patterns ...string) *model.Watch {
	t.Helper()
	w, err := db.CreateWatch(user, address)
	if err != nil {
		t.Fatalf("CreateWatch(%q) error = %v", address, err)
	}
	for _, p := range patterns {
		kind := model.MustMatch
		if len(p) > 0 && p[0] == '!' {
			kind = model.MustNotMatch
			p = p[1:]
		}
		rule, err := model.NewRule(w.ID, kind, p)
		if err != nil {
			t.Fatalf("NewRule(%q) error = %v", p, err)
		}
		if err := db.CreateRule(rule); err != nil {
			t.Fatalf("CreateRule(%q) error = %v", p, err)
		}
	}
	return w
}
