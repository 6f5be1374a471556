package whatsup_test

import (
	"errors"
	"testing"
	"time"

	"whatsup-go/internal/model"
	"whatsup-go/internal/testutil"
	"whatsup-go/internal/whatsup"
)

func dueIDs(due []model.DueWatch) map[string]bool {
	ids := make(map[string]bool, len(due))
	for _, d := range due {
		ids[d.ID] = true
	}
	return ids
}

func TestSelector_Eligibility(t *testing.T) {
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabase(t, clock)
	now := clock.Now()

	alice := testutil.MustCreateUser(t, db, "alice@example.com")
	fresh := testutil.MustCreateWatch(t, db, alice, "http://never-checked.example")
	stale := testutil.MustCreateWatch(t, db, alice, "http://stale.example")
	recent := testutil.MustCreateWatch(t, db, alice, "http://recent.example")
	disabled := testutil.MustCreateWatch(t, db, alice, "http://disabled.example")

	mustNoErr(t, db.UpdateWatchStatus(stale.ID, 200, now.Add(-11*time.Minute)))
	mustNoErr(t, db.UpdateWatchStatus(recent.ID, 200, now.Add(-5*time.Minute)))
	mustNoErr(t, db.SetWatchActive(disabled, false))

	inactive := testutil.MustCreateUser(t, db, "inactive@example.com")
	mustNoErr(t, db.SetUserActive(inactive, false))
	inactiveWatch := testutil.MustCreateWatch(t, db, inactive, "http://inactive-owner.example")

	absent := map[string]string{}
	for _, presence := range []string{"dnd", "offline", "unavailable"} {
		u := testutil.MustCreateUser(t, db, presence+"@example.com")
		mustNoErr(t, db.SetUserPresence(u, presence))
		w := testutil.MustCreateWatch(t, db, u, "http://"+presence+".example")
		absent[presence] = w.ID
	}

	away := testutil.MustCreateUser(t, db, "away@example.com")
	mustNoErr(t, db.SetUserPresence(away, "away"))
	awayWatch := testutil.MustCreateWatch(t, db, away, "http://away.example")

	due, err := whatsup.NewSelector(db, clock, 0).Select(10 * time.Minute)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	got := dueIDs(due)

	for name, id := range map[string]string{"never checked": fresh.ID, "stale": stale.ID, "unlisted presence": awayWatch.ID} {
		if !got[id] {
			t.Errorf("%s watch not selected", name)
		}
	}
	for name, id := range map[string]string{
		"recent":         recent.ID,
		"disabled":       disabled.ID,
		"inactive owner": inactiveWatch.ID,
		"dnd":            absent["dnd"],
		"offline":        absent["offline"],
		"unavailable":    absent["unavailable"],
	} {
		if got[id] {
			t.Errorf("%s watch selected", name)
		}
	}
	if len(due) != 3 {
		t.Errorf("len(due) = %d, want 3", len(due))
	}
}

func TestSelector_BatchCap(t *testing.T) {
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabase(t, clock)

	alice := testutil.MustCreateUser(t, db, "alice@example.com")
	for _, addr := range []string{"http://a.example", "http://b.example", "http://c.example", "http://d.example"} {
		testutil.MustCreateWatch(t, db, alice, addr)
		clock.Advance(time.Second)
	}

	sel := whatsup.NewSelector(db, clock, 3)
	first, err := sel.Select(10 * time.Minute)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("len(due) = %d, want 3", len(first))
	}

	second, err := sel.Select(10 * time.Minute)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("selection not stable at %d: %v vs %v", i, first[i], second[i])
		}
	}
	if first[0].Address != "http://a.example" {
		t.Errorf("first due = %q, want oldest watch first", first[0].Address)
	}
}

func TestSelector_Empty(t *testing.T) {
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabase(t, clock)

	due, err := whatsup.NewSelector(db, clock, 0).Select(10 * time.Minute)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(due) != 0 {
		t.Errorf("len(due) = %d, want 0", len(due))
	}
}

func TestSelector_StoreError(t *testing.T) {
	clock := testutil.FixedClock()
	db := &failingDatabase{Database: testutil.NewTestDatabase(t, clock), listErr: errors.New("database is locked")}

	_, err := whatsup.NewSelector(db, clock, 0).Select(time.Minute)
	if err == nil {
		t.Fatal("Select() expected error")
	}
	if !errors.Is(err, db.listErr) {
		t.Errorf("error = %v, want wrapping %v", err, db.listErr)
	}
}

// failingDatabase injects errors into selected operations.
type failingDatabase struct {
	whatsup.Database
	listErr   error
	updateErr error
}

func (d *failingDatabase) ListDueWatches(cutoff time.Time, limit int) ([]model.DueWatch, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.Database.ListDueWatches(cutoff, limit)
}

func (d *failingDatabase) UpdateWatchStatus(id string, status int, checkedAt time.Time) error {
	if d.updateErr != nil {
		return d.updateErr
	}
	return d.Database.UpdateWatchStatus(id, status, checkedAt)
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
