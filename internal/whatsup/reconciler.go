package whatsup

import (
	"context"
	"errors"
	"fmt"

	"whatsup-go/internal/model"
)

// ErrWatchNotFound is returned when a watch disappears while being checked.
var ErrWatchNotFound = errors.New("watch not found")

// Reconciliation describes what was decided for one outcome.
type Reconciliation struct {
	WatchID  string
	Previous *int
	Status   int

	// Message is the notification text, empty when the outcome warrants none.
	Message    string
	Notified   bool
	Suppressed bool // a message was due but the watch is quiet
}

// Reconciler turns fetch outcomes into a persisted status and, when the
// change warrants it, a notification to the watch owner.
type Reconciler struct {
	database Database
	notifier Notifier
	logger   Logger
	clock    Clock
	metrics  Metrics
}

// NewReconciler creates a Reconciler. A nil metrics uses NopMetrics.
func NewReconciler(database Database, notifier Notifier, logger Logger, clock Clock, metrics Metrics) *Reconciler {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Reconciler{
		database: database,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		metrics:  metrics,
	}
}

// Reconcile decides the new status for the watch behind o, persists it, and
// sends a notification unless the watch is quiet.
//
// The returned error covers loading and persisting. Notification failures
// are logged and reflected in Notified only.
func (r *Reconciler) Reconcile(ctx context.Context, o Outcome) (*Reconciliation, error) {
	watch, err := r.database.LoadWatch(o.Watch.ID)
	if err != nil {
		return nil, fmt.Errorf("loading watch %s: %w", o.Watch.ID, err)
	}
	if watch == nil {
		return nil, fmt.Errorf("loading watch %s: %w", o.Watch.ID, ErrWatchNotFound)
	}

	now := r.clock.Now()
	res := &Reconciliation{WatchID: watch.ID, Previous: watch.Status}

	if o.Err != nil {
		res.Status = StatusCode(o.Err)
		res.Message = errorMessage(watch, res.Status, o.Err.Error())
	} else {
		r.evaluate(watch, o.Content, res)
	}
	r.metrics.WatchChecked(res.Status)

	var persistErr error
	if err := r.database.UpdateWatchStatus(watch.ID, res.Status, now); err != nil {
		persistErr = fmt.Errorf("updating status of watch %s: %w", watch.ID, err)
	}

	if res.Message != "" {
		r.notify(ctx, watch, WatchIsQuiet(now, watch), res)
	}

	return res, persistErr
}

func (r *Reconciler) evaluate(watch *model.Watch, content []byte, res *Reconciliation) {
	eval, err := Evaluate(content, watch.Rules)
	switch {
	case err != nil:
		r.logger.Warn("rule evaluation failed", "watch", watch.ID, "error", err)
		res.Status = model.StatusFailed
		res.Message = errorMessage(watch, res.Status, "Rule evaluation failed")
	case eval.Status == model.StatusOK:
		res.Status = model.StatusOK
		if watch.Status == nil || *watch.Status != model.StatusOK {
			res.Message = fmt.Sprintf(":) Status of %s changed from %s to %d",
				watch.Address, watch.StatusString(), model.StatusOK)
		}
	default:
		res.Status = eval.Status
		res.Message = errorMessage(watch, res.Status, "Pattern failed: "+eval.Failing.Pattern)
	}
	r.logger.Debug("rules evaluated", "watch", watch.ID, "address", watch.Address, "status", res.Status)
}

func (r *Reconciler) notify(ctx context.Context, watch *model.Watch, quiet bool, res *Reconciliation) {
	if quiet {
		res.Suppressed = true
		r.metrics.NotificationSuppressed()
		r.logger.Info("watch is quiet, not sending", "watch", watch.ID, "message", res.Message)
		return
	}
	if watch.Owner == nil {
		r.logger.Error("watch has no owner loaded", "watch", watch.ID)
		return
	}

	if err := r.notifier.Send(ctx, watch.Owner.Address, res.Message); err != nil {
		r.metrics.NotificationFailed()
		r.logger.Warn("sending notification", "watch", watch.ID, "to", watch.Owner.Address, "error", err)
		return
	}
	res.Notified = true
	r.metrics.NotificationSent()
}

func errorMessage(watch *model.Watch, status int, detail string) string {
	return fmt.Sprintf(":( Error in %s: %d - %s", watch.Address, status, detail)
}
