package whatsup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"whatsup-go/internal/model"
)

const (
	DefaultConcurrency  = 5
	DefaultFetchTimeout = 10 * time.Second
)

// Outcome is the result of fetching one watch.
type Outcome struct {
	Watch   model.DueWatch
	Content []byte
	Err     error

	// Abandoned is set when the dispatching context ended before or during
	// the fetch. Such outcomes carry no verdict about the watch.
	Abandoned bool
}

// OutcomeHandler consumes outcomes. It runs on the fetch goroutine.
type OutcomeHandler func(ctx context.Context, o Outcome)

// ClaimFunc runs once a fetch holds its slot, before the request goes out.
// An error abandons the fetch.
type ClaimFunc func(ctx context.Context, w model.DueWatch) error

// BoundedFetcher runs fetches with a global cap on how many are in flight.
// The cap is shared by every Dispatch call, so overlapping cycles compete
// for the same slots.
type BoundedFetcher struct {
	fetcher Fetcher
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  Logger
	metrics Metrics
	claim   ClaimFunc

	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewBoundedFetcher creates a BoundedFetcher. Non-positive limits fall back
// to DefaultConcurrency and DefaultFetchTimeout.
func NewBoundedFetcher(fetcher Fetcher, concurrency int, timeout time.Duration, logger Logger, metrics Metrics) *BoundedFetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &BoundedFetcher{
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// OnSlot sets the claim run when a fetch gets its slot. Time spent queued
// for a slot can outlast a lease, so the lease is renewed here.
func (f *BoundedFetcher) OnSlot(claim ClaimFunc) {
	f.claim = claim
}

// Dispatch queues one fetch per watch and returns without waiting for any of
// them. Each outcome is handed to handle as soon as its fetch completes.
func (f *BoundedFetcher) Dispatch(ctx context.Context, batch []model.DueWatch, handle OutcomeHandler) {
	for _, w := range batch {
		f.wg.Add(1)
		go func(w model.DueWatch) {
			defer f.wg.Done()
			o := f.fetch(ctx, w)
			f.deliver(context.WithoutCancel(ctx), handle, o)
		}(w)
	}
}

// Wait blocks until every dispatched outcome has been handled.
func (f *BoundedFetcher) Wait() {
	f.wg.Wait()
}

// InFlight returns the number of fetches currently holding a slot.
func (f *BoundedFetcher) InFlight() int {
	return int(f.inFlight.Load())
}

func (f *BoundedFetcher) fetch(ctx context.Context, w model.DueWatch) Outcome {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return Outcome{Watch: w, Err: err, Abandoned: true}
	}
	defer f.sem.Release(1)

	if f.claim != nil {
		if err := f.claim(ctx, w); err != nil {
			f.logger.Debug("fetch not claimed", "watch", w.ID, "error", err)
			return Outcome{Watch: w, Err: err, Abandoned: true}
		}
	}

	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	f.metrics.FetchStarted()

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	content, err := f.fetcher.Fetch(fetchCtx, w.Address)
	f.metrics.FetchFinished(time.Since(start), err)

	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Watch: w, Err: err, Abandoned: true}
		}
		f.logger.Debug("fetch failed", "watch", w.ID, "address", w.Address, "error", err)
		return Outcome{Watch: w, Err: err}
	}

	f.logger.Debug("fetch succeeded", "watch", w.ID, "address", w.Address, "bytes", len(content))
	return Outcome{Watch: w, Content: content}
}

func (f *BoundedFetcher) deliver(ctx context.Context, handle OutcomeHandler, o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("outcome handler panicked", "watch", o.Watch.ID, "panic", r)
		}
	}()
	handle(ctx, o)
}
