package whatsup

import (
	"time"

	"whatsup-go/internal/model"
)

// IsQuiet reports whether now falls inside either quiet window.
// A nil window is never quiet.
func IsQuiet(now time.Time, watchQuietUntil, ownerQuietUntil *time.Time) bool {
	return before(now, watchQuietUntil) || before(now, ownerQuietUntil)
}

// WatchIsQuiet applies IsQuiet to a loaded watch and its owner.
func WatchIsQuiet(now time.Time, w *model.Watch) bool {
	var ownerQuietUntil *time.Time
	if w.Owner != nil {
		ownerQuietUntil = w.Owner.QuietUntil
	}
	return IsQuiet(now, w.QuietUntil, ownerQuietUntil)
}

func before(now time.Time, until *time.Time) bool {
	return until != nil && now.Before(*until)
}
