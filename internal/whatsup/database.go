package whatsup

import (
	"time"

	"whatsup-go/internal/model"
)

// Database provides the persistence operations used by the check engine and
// by the administrative commands.
// Lookups return (nil, nil) when nothing matches.
type Database interface {
	// Check engine operations

	// ListDueWatches returns at most limit watches that are eligible for a
	// check: owner active and present, watch active, and last checked before
	// cutoff (or never). Results are in a stable order.
	ListDueWatches(cutoff time.Time, limit int) ([]model.DueWatch, error)

	// LoadWatch returns a watch with its owner and rules populated.
	LoadWatch(id string) (*model.Watch, error)

	// UpdateWatchStatus records the outcome of a check. Last writer wins.
	UpdateWatchStatus(id string, status int, checkedAt time.Time) error

	// User operations

	// CreateUser registers a new user with the given address.
	CreateUser(address string) (*model.User, error)

	// FindUserByAddress returns the user with the given address.
	FindUserByAddress(address string) (*model.User, error)

	// SetUserPresence updates a user's presence token.
	SetUserPresence(user *model.User, presence string) error

	// SetUserActive enables or disables checks for all of a user's watches.
	SetUserActive(user *model.User, active bool) error

	// SetUserQuiet sets or clears (nil) the user's quiet window.
	SetUserQuiet(user *model.User, until *time.Time) error

	// Watch operations

	// CreateWatch adds a watch for the user. Fails if the user already watches address.
	CreateWatch(user *model.User, address string) (*model.Watch, error)

	// FindWatchByAddress returns the user's watch for address, with rules populated.
	FindWatchByAddress(user *model.User, address string) (*model.Watch, error)

	// FindWatchesByUser returns all of a user's watches ordered by address.
	FindWatchesByUser(user *model.User) ([]*model.Watch, error)

	// DeleteWatch removes a watch and its rules.
	DeleteWatch(watch *model.Watch) error

	// SetWatchActive enables or disables checks for a watch.
	SetWatchActive(watch *model.Watch, active bool) error

	// SetWatchQuiet sets or clears (nil) the watch's quiet window.
	SetWatchQuiet(watch *model.Watch, until *time.Time) error

	// Rule operations

	// CreateRule persists a rule. The pattern must already be validated.
	CreateRule(rule *model.Rule) error

	// Check run history

	// CreateCheckRun records a completed cycle and assigns its ID.
	CreateCheckRun(run *model.CheckRun) error

	// ListCheckRuns returns the most recent cycles, newest first.
	ListCheckRuns(limit int) ([]*model.CheckRun, error)

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// Migrate applies pending schema migrations.
	Migrate() error

	// Close closes the database connection.
	Close() error
}
