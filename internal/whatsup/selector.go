package whatsup

import (
	"fmt"
	"time"

	"whatsup-go/internal/model"
)

// DefaultBatchSize caps how many watches one cycle picks up.
const DefaultBatchSize = 50

// Selector picks the watches that are due for a check.
type Selector struct {
	database  Database
	clock     Clock
	batchSize int
}

// NewSelector creates a Selector. A non-positive batchSize uses DefaultBatchSize.
func NewSelector(database Database, clock Clock, batchSize int) *Selector {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Selector{database: database, clock: clock, batchSize: batchSize}
}

// Select returns the watches not checked within interval, up to the batch
// size. Anything beyond the cap waits for a later cycle. An empty result is
// not an error.
func (s *Selector) Select(interval time.Duration) ([]model.DueWatch, error) {
	cutoff := s.clock.Now().Add(-interval)

	due, err := s.database.ListDueWatches(cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("listing due watches: %w", err)
	}
	return due, nil
}
