package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date without time-of-day
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) IsZero() bool           { return d == Date{} }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) AddDays(n int) Date    { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) String() string { return d.Time().Format("2006-01-02") }

// Open-ended filter ranges default to these bounds.
var (
	MinFilterDate = NewDate(1970, time.January, 1)
	MaxFilterDate = NewDate(2100, time.January, 1)
)

// =============================================================================
// CLOCK TIME - Local time-of-day, no date attached
// =============================================================================

type ClockTime struct {
	Hour   int
	Minute int
}

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute}
}

// ParseClockTime parses "15:04".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Minutes returns minutes since midnight. Counter-offer validation
// compares times on a fixed reference date: an overnight shift where
// end <= start is the caller's concern, never silently reordered.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) Before(other ClockTime) bool { return c.Minutes() < other.Minutes() }
func (c ClockTime) After(other ClockTime) bool  { return c.Minutes() > other.Minutes() }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// ClockPtr is a convenience constructor for optional times.
func ClockPtr(hour, minute int) *ClockTime {
	c := NewClockTime(hour, minute)
	return &c
}

// =============================================================================
// HOLIDAY CALENDAR - Jurisdiction-specific public holidays
// =============================================================================

// HolidayCalendar answers whether a date is a public holiday. Holiday
// calendars vary by jurisdiction and year, so the lookup is injected
// rather than computed here.
type HolidayCalendar interface {
	IsPublicHoliday(date Date) bool
}

// NoHolidays is the default calendar: no date is ever a public holiday.
type NoHolidays struct{}

func (NoHolidays) IsPublicHoliday(Date) bool { return false }

// FixedHolidays is a calendar backed by an explicit date set. Useful
// for tests and for jurisdictions with a published yearly list.
type FixedHolidays map[Date]bool

func (f FixedHolidays) IsPublicHoliday(d Date) bool { return f[d] }
