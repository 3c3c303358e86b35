package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/engine"
)

func TestParseDate(t *testing.T) {
	d, err := engine.ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, engine.NewDate(2026, time.March, 2), d)
	assert.Equal(t, "2026-03-02", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = engine.ParseDate("02/03/2026")
	assert.Error(t, err)
}

func TestDate_AddDaysRollsOverMonth(t *testing.T) {
	d := engine.NewDate(2026, time.February, 27).AddDays(3)
	assert.Equal(t, engine.NewDate(2026, time.March, 2), d)

	back := d.AddDays(-3)
	assert.Equal(t, engine.NewDate(2026, time.February, 27), back)
	assert.True(t, back.Before(d))
	assert.True(t, d.After(back))
}

func TestParseClockTime(t *testing.T) {
	c, err := engine.ParseClockTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, engine.ClockTime{Hour: 9, Minute: 30}, c)
	assert.Equal(t, "09:30", c.String())
	assert.Equal(t, 570, c.Minutes())

	_, err = engine.ParseClockTime("9.30am")
	assert.Error(t, err)
}

func TestClockTime_Ordering(t *testing.T) {
	nine := engine.NewClockTime(9, 0)
	five := engine.NewClockTime(17, 0)
	assert.True(t, nine.Before(five))
	assert.True(t, five.After(nine))
	assert.False(t, nine.After(nine), "equal times are not after each other")
}

func TestFixedHolidays(t *testing.T) {
	anzac := engine.NewDate(2026, time.April, 25)
	cal := engine.FixedHolidays{anzac: true}
	assert.True(t, cal.IsPublicHoliday(anzac))
	assert.False(t, cal.IsPublicHoliday(anzac.AddDays(1)))
	assert.False(t, engine.NoHolidays{}.IsPublicHoliday(anzac))
}
