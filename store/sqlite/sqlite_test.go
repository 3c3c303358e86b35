package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/engine"
	"github.com/warp/shift-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoad_UnknownWorkerIsEmptyNotError(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, snap.AppliedShifts)
	assert.Empty(t, snap.AppliedSlots)
	assert.Empty(t, snap.SavedShifts)
	assert.Empty(t, snap.CounterOffers)
}

func TestReplaceAndLoad_RoundTrip(t *testing.T) {
	// GIVEN: A snapshot with every kind of mark and a full counter track
	// WHEN: Replacing then loading
	// THEN: The loaded snapshot carries the same state

	store := newTestStore(t)
	start := engine.ClockTime{Hour: 9}
	end := engine.ClockTime{Hour: 17, Minute: 30}

	snap := engine.SessionSnapshot{
		AppliedShifts:  []engine.ShiftID{"shift-a"},
		AppliedSlots:   []engine.SlotID{"slot-1", "slot-2"},
		RejectedShifts: []engine.ShiftID{"shift-b"},
		RejectedSlots:  []engine.SlotID{"slot-3"},
		SavedShifts:    []engine.ShiftID{"shift-c"},
		CounterOffers: map[engine.ShiftID]engine.CounterOfferTrack{
			"shift-d": {
				Summary: "1 slot(s), avg $58.00/hr",
				Slots: map[engine.SlotID]engine.CounterOfferSlot{
					"slot-4": {Rate: engine.Dec(58), Start: &start, End: &end},
				},
			},
		},
	}
	require.NoError(t, store.Replace(context.Background(), "worker-1", snap))

	loaded, err := store.Load(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, snap.AppliedShifts, loaded.AppliedShifts)
	assert.ElementsMatch(t, snap.AppliedSlots, loaded.AppliedSlots)
	assert.ElementsMatch(t, snap.RejectedShifts, loaded.RejectedShifts)
	assert.ElementsMatch(t, snap.RejectedSlots, loaded.RejectedSlots)
	assert.ElementsMatch(t, snap.SavedShifts, loaded.SavedShifts)

	track, ok := loaded.CounterOffers["shift-d"]
	require.True(t, ok)
	assert.Equal(t, "1 slot(s), avg $58.00/hr", track.Summary)
	offer, ok := track.Slots["slot-4"]
	require.True(t, ok)
	assert.True(t, offer.Rate.Equal(engine.Dec(58)))
	require.NotNil(t, offer.Start)
	assert.Equal(t, 9, offer.Start.Hour)
	require.NotNil(t, offer.End)
	assert.Equal(t, 30, offer.End.Minute)
}

func TestReplace_OverwritesNotMerges(t *testing.T) {
	// A second Replace must fully supersede the first: no stale rows.
	store := newTestStore(t)

	require.NoError(t, store.Replace(context.Background(), "worker-1", engine.SessionSnapshot{
		AppliedShifts: []engine.ShiftID{"old-shift"},
		SavedShifts:   []engine.ShiftID{"old-saved"},
		CounterOffers: map[engine.ShiftID]engine.CounterOfferTrack{
			"old-counter": {Summary: "1 slot(s), avg $40.00/hr"},
		},
	}))
	require.NoError(t, store.Replace(context.Background(), "worker-1", engine.SessionSnapshot{
		AppliedShifts: []engine.ShiftID{"new-shift"},
	}))

	loaded, err := store.Load(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Equal(t, []engine.ShiftID{"new-shift"}, loaded.AppliedShifts)
	assert.Empty(t, loaded.SavedShifts)
	assert.Empty(t, loaded.CounterOffers)
}

func TestReplace_IsolatedPerWorker(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Replace(context.Background(), "worker-1", engine.SessionSnapshot{
		SavedShifts: []engine.ShiftID{"mine"},
	}))
	require.NoError(t, store.Replace(context.Background(), "worker-2", engine.SessionSnapshot{
		SavedShifts: []engine.ShiftID{"theirs"},
	}))

	// Clearing one worker leaves the other untouched.
	require.NoError(t, store.Replace(context.Background(), "worker-1", engine.SessionSnapshot{}))

	one, err := store.Load(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Empty(t, one.SavedShifts)

	two, err := store.Load(context.Background(), "worker-2")
	require.NoError(t, err)
	assert.Equal(t, []engine.ShiftID{"theirs"}, two.SavedShifts)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Replace(context.Background(), "worker-1", engine.SessionSnapshot{
		AppliedShifts: []engine.ShiftID{"durable"},
	}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	loaded, err := reopened.Load(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Equal(t, []engine.ShiftID{"durable"}, loaded.AppliedShifts)
}
