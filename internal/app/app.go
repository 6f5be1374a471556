package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"whatsup-go/internal/config"
	"whatsup-go/internal/database"
	"whatsup-go/internal/fetch"
	"whatsup-go/internal/inflight"
	"whatsup-go/internal/metrics"
	"whatsup-go/internal/model"
	"whatsup-go/internal/notify"
	"whatsup-go/internal/whatsup"
)

// WhatsupApp is the application layer between the CLI and the check engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings, and releases every connection on Close.
type WhatsupApp struct {
	cfg      *config.Config
	db       whatsup.Database
	notifier whatsup.Notifier
	tracker  whatsup.InFlightTracker
	fetcher  whatsup.Fetcher
	service  *whatsup.WatchService
	checker  *whatsup.Checker
	registry *prometheus.Registry
	logger   whatsup.Logger
	clock    whatsup.Clock
	op       *Operation
	logFile  *os.File
}

// NewWhatsupApp creates a fully wired WhatsupApp from the given config.
// operation identifies the CLI command being run (e.g. "Run", "AddWatch").
// The caller must call Close when done.
func NewWhatsupApp(cfg *config.Config, operation string) (*WhatsupApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := whatsup.RealClock{}
	op := NewOperation(operation, clock.Now())

	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &WhatsupApp{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		op:      op,
		logFile: logFile,
	}

	a.db, err = database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := a.db.CheckMigrations(); err != nil {
		a.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	a.notifier, err = notify.NewNotifierFromConfig(cfg.Notifier, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	a.tracker, err = inflight.NewTrackerFromConfig(cfg.InFlight, clock)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating in-flight tracker: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(a.registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	a.fetcher = fetch.NewHTTPFetcher(cfg.Fetch)
	a.checker = whatsup.NewChecker(a.db, a.fetcher, a.notifier, a.tracker,
		logger, clock, whatsup.UUIDGenerator{}, whatsup.Options{
			CheckInterval: cfg.Scheduler.CheckInterval.Duration,
			BatchSize:     cfg.Scheduler.BatchSize,
			Concurrency:   cfg.Scheduler.Concurrency,
			FetchTimeout:  cfg.Scheduler.FetchTimeout.Duration,
			Metrics:       collector,
		})
	a.service = whatsup.NewWatchService(a.db, logger, clock)

	logger.Debug("operation started", "operation", operation)
	return a, nil
}

// MigrateDatabase brings the configured database to the latest schema.
func MigrateDatabase(cfg config.DatabaseConfig) error {
	db, err := database.NewDatabaseFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// CheckOnce runs a single check cycle and waits until every dispatched
// watch has been reconciled.
func (a *WhatsupApp) CheckOnce(ctx context.Context) (*whatsup.CycleResult, error) {
	res, err := a.checker.RunCycle(ctx)
	a.checker.Wait()
	return res, a.op.Record(err)
}

// Run checks on every scheduler tick until ctx is done, serving metrics if
// a listen address is configured. Outstanding checks finish before it returns.
func (a *WhatsupApp) Run(ctx context.Context) error {
	var srv *metrics.Server
	if a.cfg.Metrics.Listen != "" {
		srv = metrics.NewServer(a.cfg.Metrics.Listen, a.MetricsHandler(), a.logger)
		if _, err := srv.Start(); err != nil {
			return a.op.Record(fmt.Errorf("starting metrics server: %w", err))
		}
	}

	a.logger.Info("scheduler started",
		"tick", a.cfg.Scheduler.Tick.Duration,
		"check_interval", a.cfg.Scheduler.CheckInterval.Duration,
		"concurrency", a.cfg.Scheduler.Concurrency)
	a.checker.Run(ctx, a.cfg.Scheduler.Tick.Duration)
	a.logger.Info("scheduler stopped")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return a.op.Record(fmt.Errorf("stopping metrics server: %w", err))
		}
	}
	return nil
}

// MetricsHandler returns the HTTP handler serving /metrics and /healthz.
func (a *WhatsupApp) MetricsHandler() http.Handler {
	return metrics.NewRouter(a.registry, a.checker.InFlight)
}

// GetResult is the outcome of a one-off fetch.
type GetResult struct {
	Bytes   int
	Elapsed time.Duration
}

// Get fetches address once with the configured fetch timeout, outside any
// check cycle. Nothing is persisted.
func (a *WhatsupApp) Get(ctx context.Context, address string) (*GetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Scheduler.FetchTimeout.Duration)
	defer cancel()

	start := time.Now()
	content, err := a.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, a.op.Record(err)
	}
	return &GetResult{Bytes: len(content), Elapsed: time.Since(start)}, nil
}

// UserStatus reports a user's presence, activity flag and watch count.
func (a *WhatsupApp) UserStatus(address string) (*whatsup.UserStatus, error) {
	st, err := a.service.UserStatus(address)
	return st, a.op.Record(err)
}

// GetHistory returns the most recent check cycles.
func (a *WhatsupApp) GetHistory(limit int) ([]*model.CheckRun, error) {
	runs, err := a.checker.GetHistory(limit)
	return runs, a.op.Record(err)
}

// AddUser registers a notification address.
func (a *WhatsupApp) AddUser(address string) (*model.User, error) {
	user, err := a.service.AddUser(address)
	return user, a.op.Record(err)
}

// SetPresence records a user's presence token.
func (a *WhatsupApp) SetPresence(address, presence string) error {
	return a.op.Record(a.service.SetPresence(address, presence))
}

// SetUserActive enables or disables all checks for a user.
func (a *WhatsupApp) SetUserActive(address string, active bool) error {
	return a.op.Record(a.service.SetUserActive(address, active))
}

// QuietUser silences a user for the given duration string ("2h", "0" clears).
func (a *WhatsupApp) QuietUser(address, duration string) (*time.Time, error) {
	d, err := parseQuietDuration(duration)
	if err != nil {
		return nil, a.op.Record(err)
	}
	until, err := a.service.QuietUser(address, d)
	return until, a.op.Record(err)
}

// AddWatch starts watching target for the user at address.
func (a *WhatsupApp) AddWatch(address, target string) (*model.Watch, error) {
	watch, err := a.service.AddWatch(address, target)
	return watch, a.op.Record(err)
}

// ListWatches returns the user's watches.
func (a *WhatsupApp) ListWatches(address string) ([]*model.Watch, error) {
	watches, err := a.service.ListWatches(address)
	return watches, a.op.Record(err)
}

// InspectWatch returns one watch with its rules.
func (a *WhatsupApp) InspectWatch(address, target string) (*model.Watch, error) {
	watch, err := a.service.InspectWatch(address, target)
	return watch, a.op.Record(err)
}

// DeleteWatch stops watching target.
func (a *WhatsupApp) DeleteWatch(address, target string) error {
	return a.op.Record(a.service.DeleteWatch(address, target))
}

// SetWatchActive enables or disables one watch.
func (a *WhatsupApp) SetWatchActive(address, target string, active bool) error {
	return a.op.Record(a.service.SetWatchActive(address, target, active))
}

// QuietWatch silences one watch for the given duration string.
func (a *WhatsupApp) QuietWatch(address, target, duration string) (*time.Time, error) {
	d, err := parseQuietDuration(duration)
	if err != nil {
		return nil, a.op.Record(err)
	}
	until, err := a.service.QuietWatch(address, target, d)
	return until, a.op.Record(err)
}

// AddRule adds a content rule. exclude selects a rule whose pattern must not match.
func (a *WhatsupApp) AddRule(address, target, pattern string, exclude bool) (*model.Rule, error) {
	kind := model.MustMatch
	if exclude {
		kind = model.MustNotMatch
	}
	rule, err := a.service.AddRule(address, target, kind, pattern)
	return rule, a.op.Record(err)
}

// Close releases the tracker, notifier and database, then the log file.
// It returns the first error encountered.
func (a *WhatsupApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c, ok := a.tracker.(io.Closer); ok {
		keep(c.Close())
	}
	if c, ok := a.notifier.(io.Closer); ok {
		keep(c.Close())
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			keep(fmt.Errorf("closing database: %w", err))
		}
	}

	if a.logger != nil {
		a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status,
			"elapsed", a.clock.Now().Sub(a.op.StartedAt).Truncate(time.Millisecond))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// parseQuietDuration accepts Go durations plus "0" and "off" to clear.
func parseQuietDuration(s string) (time.Duration, error) {
	switch s {
	case "", "0", "off":
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quiet duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid quiet duration %q: must not be negative", s)
	}
	return d, nil
}
