package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"whatsup-go/internal/database/migrations"
	"whatsup-go/internal/database/sqlc"
	"whatsup-go/internal/model"
	"whatsup-go/internal/whatsup"
)

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("already exists")

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   whatsup.Clock
	idgen   whatsup.IDGenerator
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock or idgen selects the real implementation.
func NewSQLiteDatabase(path string, clock whatsup.Clock, idgen whatsup.IDGenerator) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock whatsup.Clock, idgen whatsup.IDGenerator) *SQLiteDatabase {
	if clock == nil {
		clock = whatsup.RealClock{}
	}
	if idgen == nil {
		idgen = whatsup.UUIDGenerator{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		idgen:   idgen,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// All access goes through one connection: a ":memory:" database lives
	// only as long as its connection, and SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Check engine operations

func (s *SQLiteDatabase) ListDueWatches(cutoff time.Time, limit int) ([]model.DueWatch, error) {
	rows, err := s.queries.ListDueWatches(context.Background(), sqlc.ListDueWatchesParams{
		Cutoff:  sql.NullTime{Time: cutoff.UTC(), Valid: true},
		MaxRows: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing due watches: %w", err)
	}

	result := make([]model.DueWatch, len(rows))
	for i, r := range rows {
		result[i] = model.DueWatch{ID: r.ID, Address: r.Address}
	}
	return result, nil
}

func (s *SQLiteDatabase) LoadWatch(id string) (*model.Watch, error) {
	ctx := context.Background()

	row, err := s.queries.GetWatchByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding watch: %w", err)
	}
	watch := toWatch(row)

	owner, err := s.queries.GetUserByID(ctx, row.UserID)
	if err != nil {
		return nil, fmt.Errorf("finding owner of watch %s: %w", id, err)
	}
	watch.Owner = toUser(owner)

	if err := s.loadRules(ctx, watch); err != nil {
		return nil, err
	}
	return watch, nil
}

func (s *SQLiteDatabase) UpdateWatchStatus(id string, status int, checkedAt time.Time) error {
	err := s.queries.UpdateWatchStatus(context.Background(), sqlc.UpdateWatchStatusParams{
		Status:     sql.NullInt64{Int64: int64(status), Valid: true},
		LastUpdate: sql.NullTime{Time: checkedAt.UTC(), Valid: true},
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("updating watch status: %w", err)
	}
	return nil
}

// User operations

func (s *SQLiteDatabase) CreateUser(address string) (*model.User, error) {
	row, err := s.queries.InsertUser(context.Background(), sqlc.InsertUserParams{
		ID:        s.idgen.New(),
		Address:   address,
		Presence:  "online",
		Active:    true,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", address, translate(err))
	}
	return toUser(row), nil
}

func (s *SQLiteDatabase) FindUserByAddress(address string) (*model.User, error) {
	row, err := s.queries.GetUserByAddress(context.Background(), address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user by address: %w", err)
	}
	return toUser(row), nil
}

func (s *SQLiteDatabase) SetUserPresence(user *model.User, presence string) error {
	err := s.queries.UpdateUserPresence(context.Background(), sqlc.UpdateUserPresenceParams{
		Presence: presence,
		ID:       user.ID,
	})
	if err != nil {
		return fmt.Errorf("updating user presence: %w", err)
	}
	user.Presence = presence
	return nil
}

func (s *SQLiteDatabase) SetUserActive(user *model.User, active bool) error {
	err := s.queries.UpdateUserActive(context.Background(), sqlc.UpdateUserActiveParams{
		Active: active,
		ID:     user.ID,
	})
	if err != nil {
		return fmt.Errorf("updating user active flag: %w", err)
	}
	user.Active = active
	return nil
}

func (s *SQLiteDatabase) SetUserQuiet(user *model.User, until *time.Time) error {
	err := s.queries.UpdateUserQuietUntil(context.Background(), sqlc.UpdateUserQuietUntilParams{
		QuietUntil: toNullTime(until),
		ID:         user.ID,
	})
	if err != nil {
		return fmt.Errorf("updating user quiet window: %w", err)
	}
	user.QuietUntil = until
	return nil
}

// Watch operations

func (s *SQLiteDatabase) CreateWatch(user *model.User, address string) (*model.Watch, error) {
	row, err := s.queries.InsertWatch(context.Background(), sqlc.InsertWatchParams{
		ID:        s.idgen.New(),
		UserID:    user.ID,
		Address:   address,
		Active:    true,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating watch for %s: %w", address, translate(err))
	}
	watch := toWatch(row)
	watch.Owner = user
	return watch, nil
}

func (s *SQLiteDatabase) FindWatchByAddress(user *model.User, address string) (*model.Watch, error) {
	ctx := context.Background()

	row, err := s.queries.GetWatchByUserAndAddress(ctx, sqlc.GetWatchByUserAndAddressParams{
		UserID:  user.ID,
		Address: address,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding watch by address: %w", err)
	}

	watch := toWatch(row)
	watch.Owner = user
	if err := s.loadRules(ctx, watch); err != nil {
		return nil, err
	}
	return watch, nil
}

func (s *SQLiteDatabase) FindWatchesByUser(user *model.User) ([]*model.Watch, error) {
	rows, err := s.queries.GetWatchesByUserID(context.Background(), user.ID)
	if err != nil {
		return nil, fmt.Errorf("finding watches by user: %w", err)
	}

	result := make([]*model.Watch, len(rows))
	for i := range rows {
		result[i] = toWatch(rows[i])
		result[i].Owner = user
	}
	return result, nil
}

func (s *SQLiteDatabase) DeleteWatch(watch *model.Watch) error {
	if err := s.queries.DeleteWatchByID(context.Background(), watch.ID); err != nil {
		return fmt.Errorf("deleting watch: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetWatchActive(watch *model.Watch, active bool) error {
	err := s.queries.UpdateWatchActive(context.Background(), sqlc.UpdateWatchActiveParams{
		Active: active,
		ID:     watch.ID,
	})
	if err != nil {
		return fmt.Errorf("updating watch active flag: %w", err)
	}
	watch.Active = active
	return nil
}

func (s *SQLiteDatabase) SetWatchQuiet(watch *model.Watch, until *time.Time) error {
	err := s.queries.UpdateWatchQuietUntil(context.Background(), sqlc.UpdateWatchQuietUntilParams{
		QuietUntil: toNullTime(until),
		ID:         watch.ID,
	})
	if err != nil {
		return fmt.Errorf("updating watch quiet window: %w", err)
	}
	watch.QuietUntil = until
	return nil
}

// Rule operations

func (s *SQLiteDatabase) CreateRule(rule *model.Rule) error {
	// Patterns are validated by model.NewRule; recheck so nothing bypasses it.
	if _, err := model.NewRule(rule.WatchID, rule.Kind, rule.Pattern); err != nil {
		return err
	}

	row, err := s.queries.InsertRule(context.Background(), sqlc.InsertRuleParams{
		ID:        s.idgen.New(),
		WatchID:   rule.WatchID,
		MustMatch: rule.Kind == model.MustMatch,
		Pattern:   rule.Pattern,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("creating rule: %w", err)
	}
	rule.ID = row.ID
	return nil
}

// Check run history

func (s *SQLiteDatabase) CreateCheckRun(run *model.CheckRun) error {
	row, err := s.queries.InsertCheckRun(context.Background(), sqlc.InsertCheckRunParams{
		CycleID:    run.CycleID,
		StartedAt:  run.StartedAt.UTC(),
		Selected:   int64(run.Selected),
		Dispatched: int64(run.Dispatched),
		Skipped:    int64(run.Skipped),
		Error:      run.Error,
	})
	if err != nil {
		return fmt.Errorf("creating check run: %w", err)
	}
	run.ID = row.ID
	return nil
}

func (s *SQLiteDatabase) ListCheckRuns(limit int) ([]*model.CheckRun, error) {
	rows, err := s.queries.ListCheckRuns(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing check runs: %w", err)
	}

	result := make([]*model.CheckRun, len(rows))
	for i, r := range rows {
		result[i] = &model.CheckRun{
			ID:         r.ID,
			CycleID:    r.CycleID,
			StartedAt:  r.StartedAt,
			Selected:   int(r.Selected),
			Dispatched: int(r.Dispatched),
			Skipped:    int(r.Skipped),
			Error:      r.Error,
		}
	}
	return result, nil
}

// Schema management

func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

func (s *SQLiteDatabase) loadRules(ctx context.Context, watch *model.Watch) error {
	rows, err := s.queries.GetRulesByWatchID(ctx, watch.ID)
	if err != nil {
		return fmt.Errorf("finding rules of watch %s: %w", watch.ID, err)
	}

	watch.Rules = make([]model.Rule, len(rows))
	for i, r := range rows {
		kind := model.MustNotMatch
		if r.MustMatch {
			kind = model.MustMatch
		}
		watch.Rules[i] = model.Rule{ID: r.ID, WatchID: r.WatchID, Kind: kind, Pattern: r.Pattern}
	}
	return nil
}

func toUser(row sqlc.User) *model.User {
	return &model.User{
		ID:         row.ID,
		Address:    row.Address,
		Presence:   row.Presence,
		Active:     row.Active,
		QuietUntil: fromNullTime(row.QuietUntil),
		CreatedAt:  row.CreatedAt,
	}
}

func toWatch(row sqlc.Watch) *model.Watch {
	w := &model.Watch{
		ID:         row.ID,
		UserID:     row.UserID,
		Address:    row.Address,
		Active:     row.Active,
		QuietUntil: fromNullTime(row.QuietUntil),
		LastUpdate: fromNullTime(row.LastUpdate),
		CreatedAt:  row.CreatedAt,
	}
	if row.Status.Valid {
		status := int(row.Status.Int64)
		w.Status = &status
	}
	return w
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// translate maps driver constraint errors onto package errors.
func translate(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
