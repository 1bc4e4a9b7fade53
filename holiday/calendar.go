/*
Package holiday computes German public holidays per Bundesland.

The tracker only needs "which dates are public holidays in region R during
year Y". Fixed-date holidays are tabulated; the movable feasts are derived
from Easter Sunday via the Meeus/Jones/Butcher algorithm. Unknown region
codes fall back to NW.
*/
package holiday

import (
	"sort"
	"time"

	"github.com/tracklite/track-engine/track"
)

// Calendar implements track.Calendar with computed German holidays.
type Calendar struct{}

// New returns a ready-to-use calendar.
func New() *Calendar { return &Calendar{} }

// Regions lists the supported Bundesland codes. The table lives in the domain
// package so settings validation can share it.
var Regions = track.Regions

// KnownRegion reports whether the code names a supported Bundesland.
func KnownRegion(code string) bool { return track.KnownRegion(code) }

// ForYear returns the public holidays of the region in date order.
func (c *Calendar) ForYear(region string, year int) []track.Date {
	if !KnownRegion(region) {
		region = "NW"
	}

	set := make(map[track.Date]bool)
	add := func(d track.Date) { set[d] = true }

	// Nationwide holidays.
	add(track.NewDate(year, time.January, 1))    // Neujahr
	add(track.NewDate(year, time.May, 1))        // Tag der Arbeit
	add(track.NewDate(year, time.October, 3))    // Tag der Deutschen Einheit
	add(track.NewDate(year, time.December, 25))  // 1. Weihnachtstag
	add(track.NewDate(year, time.December, 26))  // 2. Weihnachtstag

	easter := easterSunday(year)
	add(easter.AddDays(-2)) // Karfreitag
	add(easter.AddDays(1))  // Ostermontag
	add(easter.AddDays(39)) // Christi Himmelfahrt
	add(easter.AddDays(50)) // Pfingstmontag

	// Regional holidays.
	switch region {
	case "BW":
		add(track.NewDate(year, time.January, 6)) // Heilige Drei Könige
		add(easter.AddDays(60))                   // Fronleichnam
		add(track.NewDate(year, time.November, 1))
	case "BY":
		add(track.NewDate(year, time.January, 6))
		add(easter.AddDays(60))
		add(track.NewDate(year, time.August, 15)) // Mariä Himmelfahrt
		add(track.NewDate(year, time.November, 1))
	case "BE":
		add(track.NewDate(year, time.March, 8)) // Internationaler Frauentag
	case "BB", "HB", "HH", "NI", "SH":
		add(track.NewDate(year, time.October, 31)) // Reformationstag
	case "HE":
		add(easter.AddDays(60))
	case "MV":
		add(track.NewDate(year, time.March, 8))
		add(track.NewDate(year, time.October, 31))
	case "NW", "RP":
		add(easter.AddDays(60))
		add(track.NewDate(year, time.November, 1)) // Allerheiligen
	case "SL":
		add(easter.AddDays(60))
		add(track.NewDate(year, time.August, 15))
		add(track.NewDate(year, time.November, 1))
	case "SN":
		add(track.NewDate(year, time.October, 31))
		add(bussUndBettag(year))
	case "ST":
		add(track.NewDate(year, time.January, 6))
		add(track.NewDate(year, time.October, 31))
	case "TH":
		add(track.NewDate(year, time.September, 20)) // Weltkindertag
		add(track.NewDate(year, time.October, 31))
	}

	dates := make([]track.Date, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// IsHoliday reports whether the date is a public holiday in the region.
func (c *Calendar) IsHoliday(d track.Date, region string) bool {
	for _, h := range c.ForYear(region, d.Year()) {
		if h.Equal(d) {
			return true
		}
	}
	return false
}

// easterSunday computes Easter Sunday for the year using the
// Meeus/Jones/Butcher algorithm.
func easterSunday(year int) track.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return track.NewDate(year, time.Month(month), day)
}

// bussUndBettag is the Wednesday before November 23.
func bussUndBettag(year int) track.Date {
	d := track.NewDate(year, time.November, 22)
	for d.Weekday() != time.Wednesday {
		d = d.AddDays(-1)
	}
	return d
}
