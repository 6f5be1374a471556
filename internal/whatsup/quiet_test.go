package whatsup_test

import (
	"testing"
	"time"

	"whatsup-go/internal/model"
	"whatsup-go/internal/whatsup"
)

func TestIsQuiet(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name  string
		watch *time.Time
		owner *time.Time
		want  bool
	}{
		{"no windows", nil, nil, false},
		{"own window active", &future, nil, true},
		{"own window active, owner expired", &future, &past, true},
		{"owner window active", nil, &future, true},
		{"both expired", &past, &past, false},
		{"window ending now", &now, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := whatsup.IsQuiet(now, tt.watch, tt.owner); got != tt.want {
				t.Errorf("IsQuiet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatchIsQuiet(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	t.Run("owner quiet", func(t *testing.T) {
		w := &model.Watch{Owner: &model.User{QuietUntil: &future}}
		if !whatsup.WatchIsQuiet(now, w) {
			t.Error("WatchIsQuiet() = false, want true")
		}
	})

	t.Run("no owner loaded", func(t *testing.T) {
		w := &model.Watch{QuietUntil: &future}
		if !whatsup.WatchIsQuiet(now, w) {
			t.Error("WatchIsQuiet() = false, want true")
		}
		if whatsup.WatchIsQuiet(now, &model.Watch{}) {
			t.Error("WatchIsQuiet() on bare watch = true, want false")
		}
	})
}
