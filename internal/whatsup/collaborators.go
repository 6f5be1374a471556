package whatsup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsup-go/internal/model"
)

// Fetcher retrieves the content of a watched address.
// Implementations must honor ctx cancellation and deadlines.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// FetchError is returned by fetchers when the remote answered with a status
// that counts as a failure. StatusCode is zero when no code is available.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%d %v", e.StatusCode, e.Err)
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusCode derives the status to persist for a failed fetch: the code
// carried by a *FetchError, or StatusFailed.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode > 0 {
		return fe.StatusCode
	}
	return model.StatusFailed
}

// Notifier delivers a message to a user address. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, address string, message string) error
}

// InFlightTracker marks watches whose check is still running so that an
// overlapping cycle does not select them again. Leases expire on their own.
// Every acquisition carries its own token; Renew and Release act only on the
// lease that token took, so a stale holder cannot disturb a newer one.
type InFlightTracker interface {
	// Acquire takes the lease for id under token. It returns false if the
	// lease is held.
	Acquire(ctx context.Context, id string, token string) (bool, error)

	// Renew restarts the lease TTL. It returns false if the lease expired or
	// now belongs to another token.
	Renew(ctx context.Context, id string, token string) (bool, error)

	// Release gives the lease back. Releasing a lease not held by token is a no-op.
	Release(ctx context.Context, id string, token string) error
}

// Metrics receives counters from the check engine.
type Metrics interface {
	CycleCompleted(selected, dispatched, skipped int, err error)
	FetchStarted()
	FetchFinished(elapsed time.Duration, err error)
	WatchChecked(status int)
	NotificationSent()
	NotificationSuppressed()
	NotificationFailed()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CycleCompleted(int, int, int, error) {}
func (NopMetrics) FetchStarted()                       {}
func (NopMetrics) FetchFinished(time.Duration, error)  {}
func (NopMetrics) WatchChecked(int)                    {}
func (NopMetrics) NotificationSent()                   {}
func (NopMetrics) NotificationSuppressed()             {}
func (NopMetrics) NotificationFailed()                 {}
