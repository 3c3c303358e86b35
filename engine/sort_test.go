package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/engine"
)

// Note: date/slotOn/slotAt/flexibleShift/testToday are defined in rate_test.go.

func newSorter() *engine.ShiftSorter {
	return &engine.ShiftSorter{Resolver: newResolver(), Today: testToday}
}

func ids(shifts []*engine.Shift) []engine.ShiftID {
	out := make([]engine.ShiftID, len(shifts))
	for i, s := range shifts {
		out[i] = s.ID
	}
	return out
}

// =============================================================================
// URGENCY PRIMARY KEY
// =============================================================================

func TestSort_UrgentAlwaysFirst(t *testing.T) {
	// GIVEN: A cheap urgent shift and an expensive non-urgent shift
	// WHEN: Sorting by rate descending
	// THEN: The urgent shift still leads

	urgent := flexibleShift("urgent", slotAt("a", testToday, 9))
	urgent.MaxHourlyRate = engine.DecPtr(30)
	urgent.Urgent = true

	rich := flexibleShift("rich", slotAt("b", testToday, 9))
	rich.MaxHourlyRate = engine.DecPtr(90)

	shifts := []*engine.Shift{rich, urgent}
	newSorter().Sort(shifts, engine.SortSpec{Key: engine.SortByRate, Direction: engine.Descending})

	assert.Equal(t, []engine.ShiftID{"urgent", "rich"}, ids(shifts))
}

func TestSort_SecondaryKeyWithinUrgencyTier(t *testing.T) {
	a := flexibleShift("a", slotAt("a1", testToday, 9))
	a.MaxHourlyRate = engine.DecPtr(40)
	a.Urgent = true
	b := flexibleShift("b", slotAt("b1", testToday, 9))
	b.MaxHourlyRate = engine.DecPtr(60)
	b.Urgent = true
	c := flexibleShift("c", slotAt("c1", testToday, 9))
	c.MaxHourlyRate = engine.DecPtr(100)

	shifts := []*engine.Shift{a, b, c}
	newSorter().Sort(shifts, engine.SortSpec{Key: engine.SortByRate, Direction: engine.Descending})

	// Both urgent shifts precede the non-urgent one, ordered by rate
	// among themselves.
	assert.Equal(t, []engine.ShiftID{"b", "a", "c"}, ids(shifts))
}

// =============================================================================
// KEY SEMANTICS
// =============================================================================

func TestSort_ShiftDate_SoonestFirst(t *testing.T) {
	late := flexibleShift("late", slotOn("a", testToday.AddDays(10)))
	soon := flexibleShift("soon", slotOn("b", testToday.AddDays(2)))
	slotless := flexibleShift("none")

	shifts := []*engine.Shift{late, slotless, soon}
	newSorter().Sort(shifts, engine.DefaultSort())

	assert.Equal(t, []engine.ShiftID{"soon", "late", "none"}, ids(shifts))
}

func TestSort_MissingValuesLastInEitherDirection(t *testing.T) {
	// GIVEN: One shift with a distance and one without
	// THEN: The distance-less shift is last ascending AND descending

	near := flexibleShift("near", slotOn("a", testToday))
	km := 3.2
	near.DistanceKm = &km
	unknown := flexibleShift("unknown", slotOn("b", testToday))

	for _, dir := range []engine.SortDirection{engine.Ascending, engine.Descending} {
		shifts := []*engine.Shift{unknown, near}
		newSorter().Sort(shifts, engine.SortSpec{Key: engine.SortByDistance, Direction: dir})
		assert.Equal(t, []engine.ShiftID{"near", "unknown"}, ids(shifts), "direction %s", dir)
	}
}

func TestSort_PostedDate(t *testing.T) {
	older := flexibleShift("older", slotOn("a", testToday))
	older.CreatedAt = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	newer := flexibleShift("newer", slotOn("b", testToday))
	newer.CreatedAt = time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)

	shifts := []*engine.Shift{older, newer}
	newSorter().Sort(shifts, engine.SortSpec{Key: engine.SortByPostedDate, Direction: engine.Descending})

	assert.Equal(t, []engine.ShiftID{"newer", "older"}, ids(shifts))
}

func TestSort_Stable_EqualKeysKeepInputOrder(t *testing.T) {
	sameDay := testToday.AddDays(3)
	first := flexibleShift("first", slotOn("a", sameDay))
	second := flexibleShift("second", slotOn("b", sameDay))

	shifts := []*engine.Shift{first, second}
	newSorter().Sort(shifts, engine.DefaultSort())

	assert.Equal(t, []engine.ShiftID{"first", "second"}, ids(shifts))
}

// =============================================================================
// SPEC TOGGLE
// =============================================================================

func TestSortSpec_Toggle(t *testing.T) {
	spec := engine.DefaultSort()
	require.Equal(t, engine.SortByShiftDate, spec.Key)
	require.Equal(t, engine.Ascending, spec.Direction)

	// Same key flips direction; flipping twice restores it.
	spec = spec.Toggle(engine.SortByShiftDate)
	assert.Equal(t, engine.Descending, spec.Direction)
	spec = spec.Toggle(engine.SortByShiftDate)
	assert.Equal(t, engine.Ascending, spec.Direction)

	// A new key resets to ascending.
	spec = spec.Toggle(engine.SortByRate)
	spec = spec.Toggle(engine.SortByRate)
	require.Equal(t, engine.Descending, spec.Direction)
	spec = spec.Toggle(engine.SortByDistance)
	assert.Equal(t, engine.SortByDistance, spec.Key)
	assert.Equal(t, engine.Ascending, spec.Direction)
}
