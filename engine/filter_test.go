package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/engine"
)

// Note: date/slotOn/slotAt/flexibleShift/testToday are defined in rate_test.go.

func newFilter(cfg engine.FilterConfig) *engine.ShiftFilter {
	return &engine.ShiftFilter{
		Config:   cfg,
		Resolver: newResolver(),
		Today:    testToday,
	}
}

// =============================================================================
// STRUCTURAL PREDICATES
// =============================================================================

func TestFilter_ExpiredShiftsExcluded(t *testing.T) {
	// GIVEN: A shift whose only slot is in the past and a slot-less role
	// WHEN: Filtering with an empty config
	// THEN: The expired shift drops, the slot-less role survives

	expired := flexibleShift("old", slotOn("a", testToday.AddDays(-1)))
	role := flexibleShift("role")
	role.EmploymentType = engine.EmploymentFullTime

	out := newFilter(engine.FilterConfig{}).Apply([]*engine.Shift{expired, role})
	require.Len(t, out, 1)
	assert.Equal(t, engine.ShiftID("role"), out[0].ID)
}

func TestFilter_BulkOnly_CountsUpcomingSlots(t *testing.T) {
	// Five upcoming slots is bulk; four upcoming plus one expired is not.
	bulk := flexibleShift("bulk")
	small := flexibleShift("small", slotOn("e", testToday.AddDays(-1)))
	for i := 0; i < engine.BulkSlotThreshold; i++ {
		bulk.Slots = append(bulk.Slots, slotOn("b", testToday.AddDays(i)))
		if i < engine.BulkSlotThreshold-1 {
			small.Slots = append(small.Slots, slotOn("s", testToday.AddDays(i)))
		}
	}

	out := newFilter(engine.FilterConfig{BulkOnly: true}).Apply([]*engine.Shift{bulk, small})
	require.Len(t, out, 1)
	assert.Equal(t, engine.ShiftID("bulk"), out[0].ID)
}

func TestFilter_BooleanToggles(t *testing.T) {
	plain := flexibleShift("plain", slotOn("a", testToday))
	loaded := flexibleShift("loaded", slotOn("b", testToday))
	loaded.Urgent = true
	loaded.Negotiable = true
	loaded.FlexibleTime = true
	loaded.HasTravel = true
	loaded.HasAccommodation = true

	shifts := []*engine.Shift{plain, loaded}
	configs := []engine.FilterConfig{
		{OnlyUrgent: true},
		{NegotiableOnly: true},
		{FlexibleOnly: true},
		{TravelProvided: true},
		{AccommodationProvided: true},
	}
	for _, cfg := range configs {
		out := newFilter(cfg).Apply(shifts)
		require.Len(t, out, 1)
		assert.Equal(t, engine.ShiftID("loaded"), out[0].ID)
	}
}

// =============================================================================
// SET MEMBERSHIP AND NORMALIZATION
// =============================================================================

func TestFilter_RoleNormalization(t *testing.T) {
	shift := flexibleShift("s1", slotOn("a", testToday))
	shift.Role = "Dispensary_Technician"

	f := newFilter(engine.FilterConfig{Roles: []string{"dispensary  technician"}})
	assert.True(t, f.Matches(shift))

	f = newFilter(engine.FilterConfig{Roles: []string{"pharmacist"}})
	assert.False(t, f.Matches(shift))
}

func TestFilter_TimeOfDayBuckets(t *testing.T) {
	morning := flexibleShift("m", slotAt("a", testToday, 8))
	evening := flexibleShift("e", slotAt("b", testToday, 18))
	untimed := flexibleShift("u", slotOn("c", testToday))

	out := newFilter(engine.FilterConfig{TimesOfDay: []engine.TimeOfDay{engine.Morning}}).
		Apply([]*engine.Shift{morning, evening, untimed})
	require.Len(t, out, 1)
	assert.Equal(t, engine.ShiftID("m"), out[0].ID)

	// Boundary: 12:00 is afternoon, 17:00 is evening.
	noon := flexibleShift("n", slotAt("d", testToday, 12))
	assert.False(t, newFilter(engine.FilterConfig{TimesOfDay: []engine.TimeOfDay{engine.Morning}}).Matches(noon))
	assert.True(t, newFilter(engine.FilterConfig{TimesOfDay: []engine.TimeOfDay{engine.Afternoon}}).Matches(noon))
}

// =============================================================================
// DATE RANGE
// =============================================================================

func TestFilter_DateRange_InclusiveBothEnds(t *testing.T) {
	// GIVEN: A slot exactly on the range boundary
	// THEN: It matches (inclusive on both ends)

	boundary := date(2026, time.March, 10)
	shift := flexibleShift("s1", slotOn("a", boundary))

	from, to := boundary, boundary
	f := newFilter(engine.FilterConfig{DateFrom: &from, DateTo: &to})
	assert.True(t, f.Matches(shift))

	before := date(2026, time.March, 9)
	f = newFilter(engine.FilterConfig{DateTo: &before})
	assert.False(t, f.Matches(shift))
}

// =============================================================================
// MIN RATE
// =============================================================================

func TestFilter_MinRate_UsesMaxResolvable(t *testing.T) {
	// One $40 weekday slot and one $70 sunday slot: a $60 floor still
	// matches because the best slot clears it.
	shift := flexibleShift("s1",
		slotAt("mon", date(2026, time.March, 3), 9),
		slotAt("sun", date(2026, time.March, 8), 9),
	)
	pref := &engine.RatePreference{
		Weekday: engine.DecPtr(40),
		Sunday:  engine.DecPtr(70),
	}

	f := newFilter(engine.FilterConfig{MinRate: engine.DecPtr(60)})
	f.Pref = pref
	assert.True(t, f.Matches(shift))

	f = newFilter(engine.FilterConfig{MinRate: engine.DecPtr(75)})
	f.Pref = pref
	assert.False(t, f.Matches(shift))
}

func TestFilter_MinRate_UnresolvableRateFails(t *testing.T) {
	// Pharmacist-provided with no advertised range: any floor excludes it.
	shift := flexibleShift("s1", slotAt("a", testToday, 9))
	shift.RateType = engine.RatePharmacistProvided

	f := newFilter(engine.FilterConfig{MinRate: engine.DecPtr(1)})
	assert.False(t, f.Matches(shift))
}

// =============================================================================
// SEARCH AND SAVED
// =============================================================================

func TestFilter_Search_CaseInsensitiveAcrossFields(t *testing.T) {
	shift := flexibleShift("s1", slotOn("a", testToday))
	shift.PharmacyName = "Night Owl Chemist"
	shift.Address = "12 George St"

	assert.True(t, newFilter(engine.FilterConfig{Search: "chemist"}).Matches(shift))
	assert.True(t, newFilter(engine.FilterConfig{Search: "george"}).Matches(shift))
	assert.True(t, newFilter(engine.FilterConfig{Search: "PHARMACIST"}).Matches(shift), "role field is searched")
	assert.False(t, newFilter(engine.FilterConfig{Search: "warehouse"}).Matches(shift))
}

func TestFilter_SavedOnly(t *testing.T) {
	saved := flexibleShift("saved", slotOn("a", testToday))
	other := flexibleShift("other", slotOn("b", testToday))

	f := newFilter(engine.FilterConfig{SavedOnly: true})
	f.IsSaved = func(id engine.ShiftID) bool { return id == "saved" }

	out := f.Apply([]*engine.Shift{saved, other})
	require.Len(t, out, 1)
	assert.Equal(t, engine.ShiftID("saved"), out[0].ID)

	// No saved set wired in: the predicate admits nothing.
	f.IsSaved = nil
	assert.Empty(t, f.Apply([]*engine.Shift{saved}))
}

func TestFilter_MatchesLocal_SkipsListingChecks(t *testing.T) {
	// Server-side mode trusts the backend for city/role/etc but still
	// applies upcoming, saved and min-rate locally.
	shift := flexibleShift("s1", slotAt("a", testToday, 9))
	shift.City = "Perth"
	shift.MaxHourlyRate = engine.DecPtr(45)

	f := newFilter(engine.FilterConfig{
		Cities:  []string{"Sydney"}, // would fail client-side
		MinRate: engine.DecPtr(40),
	})
	assert.True(t, f.MatchesLocal(shift))
	assert.False(t, f.Matches(shift))

	f = newFilter(engine.FilterConfig{MinRate: engine.DecPtr(50)})
	assert.False(t, f.MatchesLocal(shift))
}

// =============================================================================
// QUERY-STRING ROUND-TRIP
// =============================================================================

func TestFilterConfig_QueryRoundTrip(t *testing.T) {
	// GIVEN: A config with every dimension populated
	// WHEN: Encoding to url.Values and parsing back
	// THEN: The parsed config is equivalent

	from := date(2026, time.March, 1)
	to := date(2026, time.March, 31)
	cfg := engine.FilterConfig{
		Cities:                []string{"Sydney", "Melbourne"},
		Roles:                 []string{"Pharmacist"},
		EmploymentTypes:       []string{"LOCUM"},
		MinRate:               engine.DecPtr(52.5),
		Search:                "chemist",
		TimesOfDay:            []engine.TimeOfDay{engine.Morning, engine.Evening},
		DateFrom:              &from,
		DateTo:                &to,
		OnlyUrgent:            true,
		NegotiableOnly:        true,
		TravelProvided:        true,
		AccommodationProvided: true,
		BulkOnly:              true,
		SavedOnly:             true,
	}

	parsed, err := engine.ParseFilterConfig(cfg.EncodeQuery())
	require.NoError(t, err)
	assert.Equal(t, cfg.Cities, parsed.Cities)
	assert.Equal(t, cfg.Roles, parsed.Roles)
	assert.Equal(t, cfg.EmploymentTypes, parsed.EmploymentTypes)
	assert.Equal(t, cfg.TimesOfDay, parsed.TimesOfDay)
	assert.Equal(t, cfg.Search, parsed.Search)
	require.NotNil(t, parsed.MinRate)
	assert.True(t, parsed.MinRate.Equal(*cfg.MinRate))
	require.NotNil(t, parsed.DateFrom)
	assert.True(t, parsed.DateFrom.Equal(from))
	require.NotNil(t, parsed.DateTo)
	assert.True(t, parsed.DateTo.Equal(to))
	assert.Equal(t, cfg.OnlyUrgent, parsed.OnlyUrgent)
	assert.Equal(t, cfg.NegotiableOnly, parsed.NegotiableOnly)
	assert.Equal(t, cfg.FlexibleOnly, parsed.FlexibleOnly)
	assert.Equal(t, cfg.TravelProvided, parsed.TravelProvided)
	assert.Equal(t, cfg.AccommodationProvided, parsed.AccommodationProvided)
	assert.Equal(t, cfg.BulkOnly, parsed.BulkOnly)
	assert.Equal(t, cfg.SavedOnly, parsed.SavedOnly)
}

func TestParseFilterConfig_RejectsBadValues(t *testing.T) {
	_, err := engine.ParseFilterConfig(map[string][]string{"tod": {"midnight"}})
	require.Error(t, err)
	assert.True(t, engine.IsValidationError(err))

	_, err = engine.ParseFilterConfig(map[string][]string{"min_rate": {"lots"}})
	require.Error(t, err)

	_, err = engine.ParseFilterConfig(map[string][]string{"from": {"03/2026"}})
	require.Error(t, err)
}
