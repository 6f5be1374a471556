package model

import (
	"fmt"
	"regexp"
	"time"
)

const (
	StatusOK     = 200 // last check passed every rule
	StatusFailed = -1  // fetch failed without a code, or a rule failed
)

// Presence values that make a user ineligible for checks.
var UnavailablePresences = []string{"dnd", "offline", "unavailable"}

// User is a notification destination that owns watches.
type User struct {
	ID         string // UUID
	Address    string // Unique destination address (e.g. a chat jid)
	Presence   string // Free-form presence token, "online" by default
	Active     bool
	QuietUntil *time.Time
	CreatedAt  time.Time
}

// Watch is a monitored resource belonging to exactly one user.
type Watch struct {
	ID         string // UUID
	UserID     string // Foreign key to User
	Address    string // Target URL, unique per user
	Status     *int   // nil until the first check completes
	Active     bool
	QuietUntil *time.Time
	LastUpdate *time.Time // nil if never checked
	CreatedAt  time.Time

	// Populated by loads that join the owner and rules.
	Owner *User
	Rules []Rule
}

// StatusString renders the last status, or "none" for a watch never checked.
func (w *Watch) StatusString() string {
	if w.Status == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *w.Status)
}

// Emoticon summarizes the watch state the way listings show it.
func (w *Watch) Emoticon() string {
	switch {
	case !w.Active:
		return ":-#"
	case w.Status != nil && *w.Status == StatusOK:
		return ":)"
	default:
		return ":("
	}
}

// RuleKind says whether a rule's pattern must or must not be found.
type RuleKind int

const (
	MustMatch RuleKind = iota
	MustNotMatch
)

func (k RuleKind) String() string {
	if k == MustNotMatch {
		return "-"
	}
	return "+"
}

// Rule is a content check applied to every fetch of a watch.
type Rule struct {
	ID      string // UUID
	WatchID string // Foreign key to Watch
	Kind    RuleKind
	Pattern string // Regular expression, validated at creation
}

// NewRule builds a rule after checking that the pattern compiles.
func NewRule(watchID string, kind RuleKind, pattern string) (*Rule, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &Rule{WatchID: watchID, Kind: kind, Pattern: pattern}, nil
}

// DueWatch is the slice of a watch the fetcher needs.
type DueWatch struct {
	ID      string
	Address string
	Lease   string // in-flight lease token, set once the watch is claimed
}

// CheckRun records one pass of the check cycle.
type CheckRun struct {
	ID         int64
	CycleID    string // UUID used in log lines for the cycle
	StartedAt  time.Time
	Selected   int
	Dispatched int
	Skipped    int
	Error      string // empty when selection succeeded
}
