/*
filter.go - Filter predicate set over a shift collection

PURPOSE:
  Composes independent boolean predicates over a shift via logical AND,
  parameterized by an immutable-by-replacement FilterConfig. Ordering is
  cheapest-first for short-circuiting but behaviorally equivalent to
  full evaluation.

PREDICATES:
  - Upcoming slots exist (expired slot-bearing shifts are excluded)
  - Boolean toggles: urgent, negotiable, flexible, travel, accommodation
  - Bulk: 5+ upcoming slots
  - City / role / employment-type set membership (roles normalized)
  - Time-of-day buckets: morning [0,12), afternoon [12,17), evening [17,24)
  - Inclusive date range (open ends default to 1970-01-01 / 2100-01-01)
  - Minimum resolvable rate (via the rate resolver)
  - Free-text search over pharmacy name, address, role
  - Saved-only (saved tab), parameterized by the session's saved set

SERVER-SIDE MODE:
  When filtering is delegated to a remote listing query, re-apply the
  upcoming-slots and min-rate checks locally (the backend is not trusted
  to replicate pharmacist-provided-rate edge cases) plus the saved-set
  check. See ShiftFilter.MatchesLocal.

SEE ALSO:
  - rate.go: Rate resolution used by the min-rate predicate
  - sort.go: Ordering of the filtered candidate list
*/
package engine

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FILTER CONFIG - Immutable-by-replacement value object
// =============================================================================

// TimeOfDay buckets a slot's start hour.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // [0, 12)
	Afternoon TimeOfDay = "afternoon" // [12, 17)
	Evening   TimeOfDay = "evening"   // [17, 24)
)

// Contains reports whether an hour falls in the bucket.
func (t TimeOfDay) Contains(hour int) bool {
	switch t {
	case Morning:
		return hour >= 0 && hour < 12
	case Afternoon:
		return hour >= 12 && hour < 17
	case Evening:
		return hour >= 17 && hour < 24
	default:
		return false
	}
}

// FilterConfig holds every filter dimension. Empty sets mean no
// restriction. Replace the whole value on change; never mutate in place.
type FilterConfig struct {
	Cities          []string
	Roles           []string
	EmploymentTypes []string

	MinRate *decimal.Decimal
	Search  string

	TimesOfDay []TimeOfDay

	DateFrom *Date
	DateTo   *Date

	OnlyUrgent            bool
	NegotiableOnly        bool
	FlexibleOnly          bool
	TravelProvided        bool
	AccommodationProvided bool
	BulkOnly              bool // 5+ upcoming slots
	SavedOnly             bool // saved tab
}

// BulkSlotThreshold is the upcoming-slot count at which a shift counts
// as a bulk posting.
const BulkSlotThreshold = 5

// NormalizeRole case-folds a role label and collapses whitespace and
// underscores, so "Pharmacist", "PHARMACIST" and "pharmacist " compare
// equal.
func NormalizeRole(role string) string {
	role = strings.ToLower(role)
	role = strings.ReplaceAll(role, "_", " ")
	return strings.Join(strings.Fields(role), " ")
}

// =============================================================================
// SHIFT FILTER - Config bound to its collaborators
// =============================================================================

// ShiftFilter binds a FilterConfig to the resolver, the active rate
// preference, the evaluation date and the session's saved set. The
// filter path is strictly read-only over session state.
type ShiftFilter struct {
	Config   FilterConfig
	Resolver *RateResolver
	Pref     *RatePreference
	Today    Date

	// IsSaved answers saved-set membership for the SavedOnly predicate.
	// Nil disables the predicate.
	IsSaved func(ShiftID) bool
}

// Apply returns the shifts matching every predicate, preserving input
// order.
func (f *ShiftFilter) Apply(shifts []*Shift) []*Shift {
	var out []*Shift
	for _, s := range shifts {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Matches evaluates all predicates with logical AND.
func (f *ShiftFilter) Matches(shift *Shift) bool {
	upcoming := shift.UpcomingSlots(f.Today)

	// A shift that had slots but none upcoming is expired.
	if shift.HasSlots() && len(upcoming) == 0 {
		return false
	}

	cfg := f.Config
	if cfg.OnlyUrgent && !shift.Urgent {
		return false
	}
	if cfg.NegotiableOnly && !shift.Negotiable {
		return false
	}
	if cfg.FlexibleOnly && !shift.FlexibleTime {
		return false
	}
	if cfg.TravelProvided && !shift.HasTravel {
		return false
	}
	if cfg.AccommodationProvided && !shift.HasAccommodation {
		return false
	}
	if cfg.BulkOnly && len(upcoming) < BulkSlotThreshold {
		return false
	}
	if cfg.SavedOnly && (f.IsSaved == nil || !f.IsSaved(shift.ID)) {
		return false
	}
	if len(cfg.Cities) > 0 && !containsString(cfg.Cities, shift.City) {
		return false
	}
	if len(cfg.EmploymentTypes) > 0 && !containsString(cfg.EmploymentTypes, string(shift.EmploymentType)) {
		return false
	}
	if len(cfg.Roles) > 0 && !matchesRole(cfg.Roles, shift.Role) {
		return false
	}
	if len(cfg.TimesOfDay) > 0 && !matchesTimeOfDay(cfg.TimesOfDay, upcoming) {
		return false
	}
	if !matchesDateRange(cfg.DateFrom, cfg.DateTo, upcoming) {
		return false
	}
	if cfg.Search != "" && !matchesSearch(cfg.Search, shift) {
		return false
	}
	if cfg.MinRate != nil && !f.meetsMinRate(shift) {
		return false
	}
	return true
}

// MatchesLocal re-applies only the checks a remote listing query is not
// trusted to replicate: upcoming-slot existence, the min-rate predicate
// (pharmacist-provided edge cases) and the saved tab.
func (f *ShiftFilter) MatchesLocal(shift *Shift) bool {
	upcoming := shift.UpcomingSlots(f.Today)
	if shift.HasSlots() && len(upcoming) == 0 {
		return false
	}
	if f.Config.SavedOnly && (f.IsSaved == nil || !f.IsSaved(shift.ID)) {
		return false
	}
	if f.Config.MinRate != nil && !f.meetsMinRate(shift) {
		return false
	}
	return true
}

// meetsMinRate: the maximum resolvable slot rate must be at or above
// the threshold. Shifts with no resolvable finite rate fail.
func (f *ShiftFilter) meetsMinRate(shift *Shift) bool {
	max, ok := f.Resolver.MaxUpcomingRate(shift, f.Pref, f.Today)
	if !ok {
		// Non-slot shifts still have an advertised range to check.
		if !shift.HasSlots() {
			for _, d := range []*decimal.Decimal{shift.FixedRate, shift.MaxHourlyRate, shift.MinHourlyRate} {
				if d != nil {
					max, ok = *d, true
					break
				}
			}
		}
		if !ok {
			return false
		}
	}
	return max.GreaterThanOrEqual(*f.Config.MinRate)
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func matchesRole(roles []string, role string) bool {
	want := NormalizeRole(role)
	for _, r := range roles {
		if NormalizeRole(r) == want {
			return true
		}
	}
	return false
}

func matchesTimeOfDay(buckets []TimeOfDay, upcoming []ShiftSlot) bool {
	for _, slot := range upcoming {
		if slot.Start == nil {
			continue
		}
		for _, b := range buckets {
			if b.Contains(slot.Start.Hour) {
				return true
			}
		}
	}
	return false
}

func matchesDateRange(from, to *Date, upcoming []ShiftSlot) bool {
	if from == nil && to == nil {
		return true
	}
	lo, hi := MinFilterDate, MaxFilterDate
	if from != nil {
		lo = *from
	}
	if to != nil {
		hi = *to
	}
	for _, slot := range upcoming {
		// Inclusive on both ends.
		if !slot.Date.Before(lo) && !slot.Date.After(hi) {
			return true
		}
	}
	return false
}

func matchesSearch(query string, shift *Shift) bool {
	q := strings.ToLower(query)
	for _, field := range []string{shift.PharmacyName, shift.Address, shift.Role} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// =============================================================================
// QUERY-STRING ROUND-TRIP
// =============================================================================

// EncodeQuery serializes the config to URL query values. ParseFilterConfig
// inverts it: a round-tripped config filters identically.
func (cfg FilterConfig) EncodeQuery() url.Values {
	v := url.Values{}
	for _, c := range cfg.Cities {
		v.Add("city", c)
	}
	for _, r := range cfg.Roles {
		v.Add("role", r)
	}
	for _, e := range cfg.EmploymentTypes {
		v.Add("employment", e)
	}
	for _, t := range cfg.TimesOfDay {
		v.Add("tod", string(t))
	}
	if cfg.MinRate != nil {
		v.Set("min_rate", cfg.MinRate.String())
	}
	if cfg.Search != "" {
		v.Set("search", cfg.Search)
	}
	if cfg.DateFrom != nil {
		v.Set("from", cfg.DateFrom.String())
	}
	if cfg.DateTo != nil {
		v.Set("to", cfg.DateTo.String())
	}
	setBool := func(key string, b bool) {
		if b {
			v.Set(key, "true")
		}
	}
	setBool("urgent", cfg.OnlyUrgent)
	setBool("negotiable", cfg.NegotiableOnly)
	setBool("flexible", cfg.FlexibleOnly)
	setBool("travel", cfg.TravelProvided)
	setBool("accommodation", cfg.AccommodationProvided)
	setBool("bulk", cfg.BulkOnly)
	setBool("saved", cfg.SavedOnly)
	return v
}

// ParseFilterConfig builds a config from URL query values.
func ParseFilterConfig(v url.Values) (FilterConfig, error) {
	cfg := FilterConfig{
		Cities:          v["city"],
		Roles:           v["role"],
		EmploymentTypes: v["employment"],
		Search:          v.Get("search"),
	}
	for _, t := range v["tod"] {
		switch TimeOfDay(t) {
		case Morning, Afternoon, Evening:
			cfg.TimesOfDay = append(cfg.TimesOfDay, TimeOfDay(t))
		default:
			return FilterConfig{}, &ValidationError{Field: "tod", Message: "unknown time-of-day bucket " + t}
		}
	}
	if s := v.Get("min_rate"); s != "" {
		d, ok := ParseRate(s)
		if !ok {
			return FilterConfig{}, &ValidationError{Field: "min_rate", Message: "not a decimal: " + s}
		}
		cfg.MinRate = &d
	}
	if s := v.Get("from"); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return FilterConfig{}, &ValidationError{Field: "from", Message: err.Error()}
		}
		cfg.DateFrom = &d
	}
	if s := v.Get("to"); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return FilterConfig{}, &ValidationError{Field: "to", Message: err.Error()}
		}
		cfg.DateTo = &d
	}
	cfg.OnlyUrgent = v.Get("urgent") == "true"
	cfg.NegotiableOnly = v.Get("negotiable") == "true"
	cfg.FlexibleOnly = v.Get("flexible") == "true"
	cfg.TravelProvided = v.Get("travel") == "true"
	cfg.AccommodationProvided = v.Get("accommodation") == "true"
	cfg.BulkOnly = v.Get("bulk") == "true"
	cfg.SavedOnly = v.Get("saved") == "true"
	return cfg, nil
}
