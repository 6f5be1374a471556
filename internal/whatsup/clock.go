package whatsup

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies "now" for due-set cutoffs, quiet windows and status timestamps.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock. Times are UTC so stored timestamps compare as text.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator names new users, watches, rules and cycles.
type IDGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
