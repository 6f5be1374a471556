package whatsup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsup-go/internal/model"
)

// ErrLeaseLost abandons a fetch whose in-flight lease expired while it waited for a slot.
var ErrLeaseLost = errors.New("in-flight lease lost")

// DefaultCheckInterval is how long a watch rests between checks.
const DefaultCheckInterval = 10 * time.Minute

// Options tunes the check engine. Zero values select the defaults.
type Options struct {
	CheckInterval time.Duration
	BatchSize     int
	Concurrency   int
	FetchTimeout  time.Duration
	Metrics       Metrics
}

// CycleResult summarizes one pass of the check cycle.
type CycleResult struct {
	ID         string
	Selected   int
	Dispatched int
	Skipped    int // selected but already being checked
}

// Checker runs check cycles: select due watches, claim them, and dispatch
// their fetches. Outcomes are reconciled as fetches complete.
type Checker struct {
	database   Database
	selector   *Selector
	fetcher    *BoundedFetcher
	reconciler *Reconciler
	tracker    InFlightTracker
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	metrics    Metrics
	interval   time.Duration
}

// NewChecker wires the check engine from its collaborators.
func NewChecker(database Database, fetcher Fetcher, notifier Notifier, tracker InFlightTracker, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Checker {
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics{}
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	c := &Checker{
		database:   database,
		selector:   NewSelector(database, clock, opts.BatchSize),
		fetcher:    NewBoundedFetcher(fetcher, opts.Concurrency, opts.FetchTimeout, logger, opts.Metrics),
		reconciler: NewReconciler(database, notifier, logger, clock, opts.Metrics),
		tracker:    tracker,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		metrics:    opts.Metrics,
		interval:   opts.CheckInterval,
	}
	c.fetcher.OnSlot(c.renew)
	return c
}

// RunCycle performs one pass and returns once every fetch is dispatched.
// A selection failure aborts the cycle and is returned; failures of single
// watches never are.
func (c *Checker) RunCycle(ctx context.Context) (*CycleResult, error) {
	res := &CycleResult{ID: c.idgen.New()}
	startedAt := c.clock.Now()

	due, err := c.selector.Select(c.interval)
	if err != nil {
		c.metrics.CycleCompleted(0, 0, 0, err)
		c.recordRun(startedAt, res, err)
		return nil, fmt.Errorf("cycle %s: %w", res.ID, err)
	}
	res.Selected = len(due)

	batch := make([]model.DueWatch, 0, len(due))
	for _, w := range due {
		w.Lease = c.idgen.New()
		acquired, err := c.tracker.Acquire(ctx, w.ID, w.Lease)
		if err != nil {
			c.logger.Warn("claiming watch", "cycle", res.ID, "watch", w.ID, "error", err)
			res.Skipped++
			continue
		}
		if !acquired {
			c.logger.Debug("watch already in flight", "cycle", res.ID, "watch", w.ID)
			res.Skipped++
			continue
		}
		batch = append(batch, w)
	}
	res.Dispatched = len(batch)

	c.fetcher.Dispatch(ctx, batch, c.handleOutcome)

	c.metrics.CycleCompleted(res.Selected, res.Dispatched, res.Skipped, nil)
	if res.Selected > 0 {
		c.recordRun(startedAt, res, nil)
		c.logger.Info("cycle dispatched", "cycle", res.ID, "selected", res.Selected,
			"dispatched", res.Dispatched, "skipped", res.Skipped)
	}
	return res, nil
}

// Run executes a cycle immediately and then on every tick until ctx is done.
// It waits for outstanding fetches before returning.
func (c *Checker) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if _, err := c.RunCycle(ctx); err != nil {
			c.logger.Error("check cycle aborted", "error", err)
		}

		select {
		case <-ctx.Done():
			c.Wait()
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until all dispatched outcomes have been reconciled.
func (c *Checker) Wait() {
	c.fetcher.Wait()
}

// InFlight returns the number of fetches currently running.
func (c *Checker) InFlight() int {
	return c.fetcher.InFlight()
}

func (c *Checker) handleOutcome(ctx context.Context, o Outcome) {
	defer c.release(ctx, o.Watch)

	if o.Abandoned {
		c.logger.Debug("fetch abandoned", "watch", o.Watch.ID, "error", o.Err)
		return
	}

	res, err := c.reconciler.Reconcile(ctx, o)
	if err != nil {
		if errors.Is(err, ErrWatchNotFound) {
			c.logger.Info("watch removed during check", "watch", o.Watch.ID)
		} else {
			c.logger.Error("reconciling outcome", "watch", o.Watch.ID, "error", err)
		}
	}
	if res != nil {
		c.logger.Debug("watch checked", "watch", res.WatchID, "status", res.Status,
			"notified", res.Notified, "suppressed", res.Suppressed)
	}
}

// renew restarts the lease as the fetch begins. A lease lost while queued
// may already belong to a later cycle, which then owns the check.
func (c *Checker) renew(ctx context.Context, w model.DueWatch) error {
	ok, err := c.tracker.Renew(ctx, w.ID, w.Lease)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLeaseLost
	}
	return nil
}

func (c *Checker) release(ctx context.Context, w model.DueWatch) {
	if err := c.tracker.Release(ctx, w.ID, w.Lease); err != nil {
		c.logger.Warn("releasing watch", "watch", w.ID, "error", err)
	}
}

func (c *Checker) recordRun(startedAt time.Time, res *CycleResult, cycleErr error) {
	run := &model.CheckRun{
		CycleID:    res.ID,
		StartedAt:  startedAt,
		Selected:   res.Selected,
		Dispatched: res.Dispatched,
		Skipped:    res.Skipped,
	}
	if cycleErr != nil {
		run.Error = cycleErr.Error()
	}
	if err := c.database.CreateCheckRun(run); err != nil {
		c.logger.Warn("recording check run", "cycle", res.ID, "error", err)
	}
}
