package holiday_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklite/track-engine/holiday"
	"github.com/tracklite/track-engine/track"
)

func TestCalendar_Easter2025(t *testing.T) {
	// Easter Sunday 2025 is April 20; the movable feasts hang off it.
	cal := holiday.New()

	assert.True(t, cal.IsHoliday(track.NewDate(2025, time.April, 18), "NW"), "Karfreitag")
	assert.True(t, cal.IsHoliday(track.NewDate(2025, time.April, 21), "NW"), "Ostermontag")
	assert.True(t, cal.IsHoliday(track.NewDate(2025, time.May, 29), "NW"), "Christi Himmelfahrt")
	assert.True(t, cal.IsHoliday(track.NewDate(2025, time.June, 9), "NW"), "Pfingstmontag")
	assert.True(t, cal.IsHoliday(track.NewDate(2025, time.June, 19), "NW"), "Fronleichnam")

	// Easter Sunday itself is not a separate public holiday.
	assert.False(t, cal.IsHoliday(track.NewDate(2025, time.April, 20), "NW"))
}

func TestCalendar_Easter2024(t *testing.T) {
	// 2024 was an early Easter: March 31.
	cal := holiday.New()
	assert.True(t, cal.IsHoliday(track.NewDate(2024, time.March, 29), "NW"), "Karfreitag")
	assert.True(t, cal.IsHoliday(track.NewDate(2024, time.April, 1), "NW"), "Ostermontag")
}

func TestCalendar_RegionalDifferences(t *testing.T) {
	cal := holiday.New()
	epiphany := track.NewDate(2025, time.January, 6)
	assumption := track.NewDate(2025, time.August, 15)
	reformation := track.NewDate(2025, time.October, 31)
	allSaints := track.NewDate(2025, time.November, 1)

	// Heilige Drei Könige: BW/BY/ST only.
	assert.True(t, cal.IsHoliday(epiphany, "BY"))
	assert.False(t, cal.IsHoliday(epiphany, "NW"))

	// Mariä Himmelfahrt: BY and SL.
	assert.True(t, cal.IsHoliday(assumption, "SL"))
	assert.False(t, cal.IsHoliday(assumption, "HE"))

	// Reformationstag in the north, Allerheiligen in the west.
	assert.True(t, cal.IsHoliday(reformation, "HH"))
	assert.False(t, cal.IsHoliday(reformation, "NW"))
	assert.True(t, cal.IsHoliday(allSaints, "NW"))
	assert.False(t, cal.IsHoliday(allSaints, "HH"))
}

func TestCalendar_BussUndBettag(t *testing.T) {
	// The Wednesday before November 23, Saxony only. 2025: November 19.
	cal := holiday.New()
	assert.True(t, cal.IsHoliday(track.NewDate(2025, time.November, 19), "SN"))
	assert.False(t, cal.IsHoliday(track.NewDate(2025, time.November, 19), "BY"))
}

func TestCalendar_UnknownRegionFallsBackToNW(t *testing.T) {
	cal := holiday.New()

	got := cal.ForYear("XX", 2025)
	want := cal.ForYear("NW", 2025)
	assert.Equal(t, want, got)
}

func TestCalendar_ForYear_SortedAndUnique(t *testing.T) {
	cal := holiday.New()
	dates := cal.ForYear("BY", 2025)
	require.NotEmpty(t, dates)

	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i-1].Before(dates[i]), "dates must be strictly ascending")
	}

	// Nationwide anchors present.
	assert.True(t, dates[0].Equal(track.NewDate(2025, time.January, 1)))
	assert.True(t, dates[len(dates)-1].Equal(track.NewDate(2025, time.December, 26)))
}

func TestKnownRegion(t *testing.T) {
	assert.True(t, holiday.KnownRegion("NW"))
	assert.True(t, holiday.KnownRegion("SN"))
	assert.False(t, holiday.KnownRegion("XX"))
	assert.False(t, holiday.KnownRegion("nw"), "codes are upper-case")
	assert.Len(t, holiday.Regions, 16)
}
