/*
rate.go - Effective rate resolution for shifts and slots

PURPOSE:
  Maps a (slot, shift, worker rate preference) triple to an effective
  hourly rate, and a shift to a human-readable rate summary. This is the
  single source of truth for pricing: the filter (min-rate predicate),
  the sorter (rate key) and the counter-offer builder (seed rates) all
  resolve through here.

RESOLUTION ORDER (per slot):
  1. Slot-level rate override - always wins; an override is assumed
     already negotiated for that date.
  2. FIXED shifts - the posted fixed rate.
  3. Day-type preference - classify the slot date (public holiday >
     sunday > saturday > weekday), override with early-morning/late-night
     when the start time falls in the configured window and the worker
     has not opted the window back to the day rate.
  4. Shift range fallback - max hourly rate, then min hourly rate.
  5. PHARMACIST_PROVIDED with nothing else - zero, flagged "rate set by
     pharmacist". Never an error.

DEGENERACY:
  A slot with no resolvable rate yields ok=false and is excluded from
  every aggregate (max, sort value) rather than poisoning it.

SEE ALSO:
  - types.go: RatePreference, DayType
  - time.go: HolidayCalendar
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE RESOLVER
// =============================================================================

// Window defaults: early morning is before 06:00, late night from 20:00.
const (
	DefaultEarlyMorningBefore = 6
	DefaultLateNightFrom      = 20
)

// RateResolver resolves effective rates. The holiday calendar is an
// external fact and is injected; the window hours are configurable.
type RateResolver struct {
	Calendar           HolidayCalendar
	EarlyMorningBefore int // start hour strictly below this is early morning
	LateNightFrom      int // start hour at or above this is late night
}

// NewRateResolver creates a resolver with default windows. A nil
// calendar behaves as NoHolidays.
func NewRateResolver(calendar HolidayCalendar) *RateResolver {
	if calendar == nil {
		calendar = NoHolidays{}
	}
	return &RateResolver{
		Calendar:           calendar,
		EarlyMorningBefore: DefaultEarlyMorningBefore,
		LateNightFrom:      DefaultLateNightFrom,
	}
}

// RateResult is the outcome of resolving a single slot.
type RateResult struct {
	Rate decimal.Decimal

	// OK is false when no finite rate could be resolved. Such results
	// are excluded from max/sort aggregates.
	OK bool

	// SetByPharmacist marks the PHARMACIST_PROVIDED sentinel: the rate
	// is zero and the display should read "rate set by pharmacist".
	SetByPharmacist bool

	// DayType the slot was priced under (zero value when a slot
	// override or fixed rate short-circuited classification).
	DayType DayType
}

// SlotRate resolves the effective hourly rate for one slot.
func (r *RateResolver) SlotRate(slot ShiftSlot, shift *Shift, pref *RatePreference) RateResult {
	// Slot override wins over everything, including FIXED.
	if slot.Rate != nil {
		return RateResult{Rate: *slot.Rate, OK: true}
	}

	if shift.RateType == RateFixed && shift.FixedRate != nil {
		return RateResult{Rate: *shift.FixedRate, OK: true}
	}

	dt := r.ClassifyDayType(slot, pref)
	if p := pref.Rate(dt); p != nil {
		return RateResult{Rate: *p, OK: true, DayType: dt}
	}

	// No matching preference: fall back to the advertised range,
	// preferring the max so workers see the best case.
	if shift.MaxHourlyRate != nil {
		return RateResult{Rate: *shift.MaxHourlyRate, OK: true, DayType: dt}
	}
	if shift.MinHourlyRate != nil {
		return RateResult{Rate: *shift.MinHourlyRate, OK: true, DayType: dt}
	}

	if shift.RateType == RatePharmacistProvided {
		return RateResult{Rate: decimal.Zero, SetByPharmacist: true, DayType: dt}
	}
	return RateResult{DayType: dt}
}

// ClassifyDayType classifies a slot into its pricing tier.
// Precedence: public holiday > sunday > saturday > weekday. A start
// time inside the early-morning or late-night window overrides the
// classification unless the worker opted that window back to the day
// rate.
func (r *RateResolver) ClassifyDayType(slot ShiftSlot, pref *RatePreference) DayType {
	calendar := r.Calendar
	if calendar == nil {
		calendar = NoHolidays{}
	}

	var dt DayType
	switch {
	case calendar.IsPublicHoliday(slot.Date):
		dt = DayPublicHoliday
	case slot.Date.Weekday() == time.Sunday:
		dt = DaySunday
	case slot.Date.Weekday() == time.Saturday:
		dt = DaySaturday
	default:
		dt = DayWeekday
	}

	if slot.Start == nil {
		return dt
	}
	sameAsDayEarly := pref != nil && pref.EarlyMorningSameAsDay
	sameAsDayLate := pref != nil && pref.LateNightSameAsDay
	switch {
	case slot.Start.Hour < r.EarlyMorningBefore && !sameAsDayEarly:
		return DayEarlyMorning
	case slot.Start.Hour >= r.LateNightFrom && !sameAsDayLate:
		return DayLateNight
	}
	return dt
}

// =============================================================================
// SHIFT-LEVEL AGGREGATES
// =============================================================================

// MaxUpcomingRate resolves the maximum rate across a shift's upcoming
// slots. Workers see the best case on the card, then confirm per-slot
// on expand. ok is false when no upcoming slot resolves.
func (r *RateResolver) MaxUpcomingRate(shift *Shift, pref *RatePreference, today Date) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, slot := range shift.UpcomingSlots(today) {
		res := r.SlotRate(slot, shift, pref)
		if !res.OK {
			continue
		}
		if !found || res.Rate.GreaterThan(best) {
			best = res.Rate
			found = true
		}
	}
	return best, found
}

// SortRateValue produces the value the rate sort key orders by.
// Fallback chain for shifts whose slots do not resolve:
// fixed rate, max hourly, min hourly, max salary, min salary.
// ok=false means rate-less; such shifts sort last.
func (r *RateResolver) SortRateValue(shift *Shift, pref *RatePreference, today Date) (decimal.Decimal, bool) {
	if max, ok := r.MaxUpcomingRate(shift, pref, today); ok {
		return max, true
	}
	for _, d := range []*decimal.Decimal{
		shift.FixedRate,
		shift.MaxHourlyRate,
		shift.MinHourlyRate,
		shift.MaxAnnualSalary,
		shift.MinAnnualSalary,
	} {
		if d != nil {
			return *d, true
		}
	}
	return decimal.Zero, false
}

// =============================================================================
// RATE SUMMARY - Card display value
// =============================================================================

// RateSummary is the human-readable rate for a shift card.
type RateSummary struct {
	Display   string // "$52.50", "$90,000 - $110,000", "Rate set by pharmacist"
	UnitLabel string // "/hr", "/yr", or empty for the pharmacist sentinel
}

// Summary builds the display rate for a shift.
func (r *RateResolver) Summary(shift *Shift, pref *RatePreference, today Date) RateSummary {
	if shift.EmploymentType.IsSalaried() {
		return salarySummary(shift)
	}

	if max, ok := r.MaxUpcomingRate(shift, pref, today); ok {
		return RateSummary{Display: "$" + max.StringFixed(2), UnitLabel: "/hr"}
	}

	// Non-slot hourly shifts (or nothing upcoming resolved).
	for _, d := range []*decimal.Decimal{shift.FixedRate, shift.MaxHourlyRate, shift.MinHourlyRate} {
		if d != nil {
			return RateSummary{Display: "$" + d.StringFixed(2), UnitLabel: "/hr"}
		}
	}
	return RateSummary{Display: "Rate set by pharmacist"}
}

func salarySummary(shift *Shift) RateSummary {
	min, max := shift.MinAnnualSalary, shift.MaxAnnualSalary
	switch {
	case min != nil && max != nil && !min.Equal(*max):
		return RateSummary{
			Display:   fmt.Sprintf("$%s - $%s", min.StringFixed(0), max.StringFixed(0)),
			UnitLabel: "/yr",
		}
	case max != nil:
		return RateSummary{Display: "$" + max.StringFixed(0), UnitLabel: "/yr"}
	case min != nil:
		return RateSummary{Display: "$" + min.StringFixed(0), UnitLabel: "/yr"}
	default:
		return RateSummary{Display: "Rate set by pharmacist"}
	}
}
