/*
Package engine provides the core shift marketplace engine.

PURPOSE:
  This package contains the pure logic for the locum shift marketplace:
  resolving the effective hourly rate of any slot from the rate models and
  worker preferences, filtering and deterministically sorting a shift
  collection, tracking per-shift/per-slot application state under
  partial-acceptance rules, and building validated counter-offer payloads.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift: A posted work opportunity, possibly spanning multiple dated slots
  - ShiftSlot: One concrete date/time unit within a shift
  - RatePreference: Worker-owned per-day-type rate overrides
  - Shift/Slot/Worker IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: No I/O in this package; collaborators arrive as interfaces
  2. Precision: Uses decimal.Decimal for all rates, never float math
  3. Type Safety: Strong typing for IDs prevents mixing shift/slot IDs
  4. Determinism: Filtering and sorting are total, stable, re-derivable

USAGE:
  resolver := engine.NewRateResolver(calendar)
  rate := resolver.SlotRate(slot, shift, pref)

SEE ALSO:
  - rate.go: Rate resolution from rate models and preferences
  - filter.go: Filter predicate set over a shift collection
  - sort.go: Deterministic ordering with urgency tie-break
  - session.go: Per-worker application/rejection/saved state
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ShiftID string
type SlotID string
type WorkerID string

// =============================================================================
// ENUMS
// =============================================================================

// EmploymentType classifies how a shift is staffed.
type EmploymentType string

const (
	EmploymentLocum    EmploymentType = "LOCUM"
	EmploymentFullTime EmploymentType = "FULL_TIME"
	EmploymentPartTime EmploymentType = "PART_TIME"
)

// IsSalaried reports whether the shift quotes an annual salary range
// instead of an hourly rate.
func (e EmploymentType) IsSalaried() bool {
	return e == EmploymentFullTime || e == EmploymentPartTime
}

// RateType determines which rate model applies to a shift.
type RateType string

const (
	// RateFixed: the pharmacy posted a single non-negotiable hourly rate.
	RateFixed RateType = "FIXED"

	// RateFlexible: the rate is resolved from the worker's day-type
	// preferences, falling back to the shift's advertised range.
	RateFlexible RateType = "FLEXIBLE"

	// RatePharmacistProvided: the pharmacy sets the rate after contact.
	// Resolution yields a sentinel, never an error.
	RatePharmacistProvided RateType = "PHARMACIST_PROVIDED"
)

// =============================================================================
// SHIFT - A unit of work posted by a pharmacy
// =============================================================================

type Shift struct {
	ID             ShiftID
	PharmacyName   string
	Role           string
	EmploymentType EmploymentType
	RateType       RateType

	// Rate model. All nullable; resolution order lives in rate.go.
	FixedRate       *decimal.Decimal
	MinHourlyRate   *decimal.Decimal
	MaxHourlyRate   *decimal.Decimal
	MinAnnualSalary *decimal.Decimal
	MaxAnnualSalary *decimal.Decimal
	SuperPercent    *decimal.Decimal

	// Negotiation surface.
	Negotiable   bool // hourly rate open to counter-offer
	FlexibleTime bool // start/end times open to counter-offer

	// Slot selection rules.
	SingleUserOnly bool // bundle-only: one worker takes all slots or none
	AllowPartial   bool // slot-level selection permitted (ignored when bundle-only)

	Urgent           bool
	HasTravel        bool
	HasAccommodation bool

	CreatedAt time.Time

	// Location.
	City    string
	State   string
	Address string

	// Distance from the worker, precomputed by the listing backend.
	// Nil when the worker has no location on file.
	DistanceKm *float64

	// Zero slots means a non-slot (full/part-time) role.
	Slots []ShiftSlot
}

// HasSlots reports whether this shift is slot-bearing. A shift without
// slots is treated as a full/part-time role.
func (s *Shift) HasSlots() bool { return len(s.Slots) > 0 }

// PartialAllowed reports whether individual slots may be selected.
// Bundle-only shifts disallow partial selection regardless of AllowPartial.
func (s *Shift) PartialAllowed() bool {
	return !s.SingleUserOnly && s.AllowPartial
}

// UpcomingSlots returns slots dated today or later. Display and all
// actions operate on upcoming slots unless explicitly overridden.
func (s *Shift) UpcomingSlots(today Date) []ShiftSlot {
	var upcoming []ShiftSlot
	for _, slot := range s.Slots {
		if !slot.Date.Before(today) {
			upcoming = append(upcoming, slot)
		}
	}
	return upcoming
}

// Slot returns the slot with the given ID, or nil.
func (s *Shift) Slot(id SlotID) *ShiftSlot {
	for i := range s.Slots {
		if s.Slots[i].ID == id {
			return &s.Slots[i]
		}
	}
	return nil
}

// FirstUpcomingDate returns the earliest upcoming slot date.
// ok is false for shifts with no upcoming slots.
func (s *Shift) FirstUpcomingDate(today Date) (Date, bool) {
	var first Date
	found := false
	for _, slot := range s.UpcomingSlots(today) {
		if !found || slot.Date.Before(first) {
			first = slot.Date
			found = true
		}
	}
	return first, found
}

// =============================================================================
// SHIFT SLOT - One dated time unit within a shift
// =============================================================================

type ShiftSlot struct {
	ID      SlotID
	ShiftID ShiftID
	Date    Date

	// Local times of day; nil when the posting has no times yet.
	Start *ClockTime
	End   *ClockTime

	// Slot-level rate override. Always wins over shift-level values:
	// a slot override is assumed already negotiated for that date.
	Rate *decimal.Decimal
}

// =============================================================================
// RATE PREFERENCE - Worker-owned per-day-type overrides
// =============================================================================

// DayType is the pricing tier applied to a slot based on its date and
// start time. Classification precedence: public holiday > sunday >
// saturday > weekday, with early-morning/late-night window overrides.
type DayType string

const (
	DayWeekday       DayType = "weekday"
	DaySaturday      DayType = "saturday"
	DaySunday        DayType = "sunday"
	DayPublicHoliday DayType = "public_holiday"
	DayEarlyMorning  DayType = "early_morning"
	DayLateNight     DayType = "late_night"
)

// RatePreference holds the worker's optional per-day-type rate overrides.
// A nil field means "no override" and resolution falls through to the
// shift's advertised range.
type RatePreference struct {
	Weekday       *decimal.Decimal
	Saturday      *decimal.Decimal
	Sunday        *decimal.Decimal
	PublicHoliday *decimal.Decimal
	EarlyMorning  *decimal.Decimal
	LateNight     *decimal.Decimal

	// When set, the corresponding window rate falls back to the
	// underlying day-type rate instead of the window override.
	EarlyMorningSameAsDay bool
	LateNightSameAsDay    bool
}

// Rate returns the preference for a day type, or nil when absent.
func (p *RatePreference) Rate(dt DayType) *decimal.Decimal {
	if p == nil {
		return nil
	}
	switch dt {
	case DayWeekday:
		return p.Weekday
	case DaySaturday:
		return p.Saturday
	case DaySunday:
		return p.Sunday
	case DayPublicHoliday:
		return p.PublicHoliday
	case DayEarlyMorning:
		return p.EarlyMorning
	case DayLateNight:
		return p.LateNight
	default:
		return nil
	}
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// Dec is a convenience constructor for tests and callers.
func Dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// DecPtr returns a pointer to a decimal built from f.
func DecPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// ParseRate parses a locale-agnostic decimal string. Empty strings and
// unparseable values return ok=false rather than an error so degenerate
// rates never poison aggregates.
func ParseRate(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
