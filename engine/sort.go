/*
sort.go - Deterministic ordering of the filtered shift list

PURPOSE:
  Total, stable order over a filtered shift collection. Urgent shifts
  always sort first regardless of the chosen key; within the same
  urgency, the user-selected key and direction apply; missing values
  always sort after populated ones in either direction.

SORT KEYS:
  shift_date  - first upcoming slot date (slot-less shifts last)
  posted_date - shift creation timestamp
  rate        - SortRateValue from rate.go (rate-less shifts last)
  distance    - precomputed distance from the worker (missing = last)

SEE ALSO:
  - rate.go: SortRateValue
  - filter.go: Produces the candidate list this orders
*/
package engine

import (
	"sort"
)

// =============================================================================
// SORT SPEC
// =============================================================================

type SortKey string

const (
	SortByShiftDate  SortKey = "shift_date"
	SortByPostedDate SortKey = "posted_date"
	SortByRate       SortKey = "rate"
	SortByDistance   SortKey = "distance"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

type SortSpec struct {
	Key       SortKey
	Direction SortDirection
}

// DefaultSort orders by first upcoming slot date, soonest first.
func DefaultSort() SortSpec {
	return SortSpec{Key: SortByShiftDate, Direction: Ascending}
}

// Toggle returns the spec after the user selects a key: selecting the
// current key flips direction, a new key resets to ascending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	if s.Key == key {
		if s.Direction == Ascending {
			return SortSpec{Key: key, Direction: Descending}
		}
		return SortSpec{Key: key, Direction: Ascending}
	}
	return SortSpec{Key: key, Direction: Ascending}
}

// =============================================================================
// SORTER
// =============================================================================

// ShiftSorter orders shifts. The resolver and preference feed the rate
// key; Today scopes "first upcoming slot".
type ShiftSorter struct {
	Resolver *RateResolver
	Pref     *RatePreference
	Today    Date
}

// Sort orders the slice in place. Stable: equal keys keep input order.
func (ss *ShiftSorter) Sort(shifts []*Shift, spec SortSpec) {
	sort.SliceStable(shifts, func(i, j int) bool {
		return ss.less(shifts[i], shifts[j], spec)
	})
}

func (ss *ShiftSorter) less(a, b *Shift, spec SortSpec) bool {
	// Urgency is the primary key regardless of the chosen sort.
	if a.Urgent != b.Urgent {
		return a.Urgent
	}

	av, aok := ss.keyValue(a, spec.Key)
	bv, bok := ss.keyValue(b, spec.Key)

	// Missing values sort after populated ones in either direction.
	if aok != bok {
		return aok
	}
	if !aok {
		return false
	}
	if av == bv {
		return false
	}
	if spec.Direction == Descending {
		return av > bv
	}
	return av < bv
}

// keyValue maps a shift to an orderable string. Dates format as
// RFC3339/ISO so lexical order is chronological; decimals are padded to
// a fixed width so lexical order is numeric.
func (ss *ShiftSorter) keyValue(s *Shift, key SortKey) (string, bool) {
	switch key {
	case SortByShiftDate:
		d, ok := s.FirstUpcomingDate(ss.Today)
		if !ok {
			return "", false
		}
		return d.String(), true
	case SortByPostedDate:
		if s.CreatedAt.IsZero() {
			return "", false
		}
		return s.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000"), true
	case SortByRate:
		v, ok := ss.Resolver.SortRateValue(s, ss.Pref, ss.Today)
		if !ok {
			return "", false
		}
		return padDecimal(v.StringFixed(4)), true
	case SortByDistance:
		if s.DistanceKm == nil {
			return "", false
		}
		return padDecimal(Dec(*s.DistanceKm).StringFixed(4)), true
	default:
		return "", false
	}
}

// padDecimal left-pads a non-negative fixed-point string to a constant
// width so lexical comparison matches numeric comparison.
func padDecimal(s string) string {
	const width = 24
	for len(s) < width {
		s = "0" + s
	}
	return s
}
