package track_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklite/track-engine/store/sqlite"
	"github.com/tracklite/track-engine/track"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fixedCalendar serves a static holiday list regardless of region and year.
type fixedCalendar struct {
	holidays []track.Date
}

func (f fixedCalendar) ForYear(region string, year int) []track.Date {
	return f.holidays
}

func newOvertimeFixture(t *testing.T, holidays ...track.Date) (*track.OvertimeEngine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := track.NewOvertimeEngine(store, fixedCalendar{holidays: holidays})
	return engine, store
}

func seedSettings(t *testing.T, store *sqlite.Store, mask track.WorkWeek, hoursPerWeek int64) {
	t.Helper()
	s := track.DefaultSettings("alice")
	s.WorkDays = mask
	s.WorkHoursPerWeek = decimal.NewFromInt(hoursPerWeek)
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	require.NoError(t, store.SaveSettings(context.Background(), s))
}

func seedSession(t *testing.T, store *sqlite.Store, date track.Date, hours float64) {
	t.Helper()
	start := time.Date(date.Year(), date.Month(), date.Day(), 8, 0, 0, 0, time.UTC)
	stop := start.Add(time.Duration(hours * float64(time.Hour)))
	now := time.Now().UTC()
	require.NoError(t, store.SaveSession(context.Background(), track.WorkSession{
		ID:        "sess-" + date.String(),
		UserID:    "alice",
		Date:      date,
		StartTime: start,
		StopTime:  &stop,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

var year2025 = 2025

// =============================================================================
// ENGINE TESTS
// =============================================================================

func TestOvertimeEngine_NoSettings_NotFound(t *testing.T) {
	// The engine never creates a settings row on the fly.
	engine, _ := newOvertimeFixture(t)

	_, err := engine.Calculate(context.Background(), "alice", &year2025)
	assert.ErrorIs(t, err, track.ErrNotFound)
}

func TestOvertimeEngine_WorkedHoursSummedPerMonth(t *testing.T) {
	// GIVEN: An empty work-week mask (expected hours are zero everywhere)
	// WHEN: Sessions exist in January and February
	// THEN: Worked hours equal overtime, month by month

	engine, store := newOvertimeFixture(t)
	seedSettings(t, store, track.WorkWeek(0), 40)
	seedSession(t, store, track.NewDate(2025, time.January, 10), 4.5)
	seedSession(t, store, track.NewDate(2025, time.January, 20), 8)
	seedSession(t, store, track.NewDate(2025, time.February, 3), 6)

	summary, err := engine.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)

	require.Len(t, summary.Monthly, 12)
	jan, feb := summary.Monthly[0], summary.Monthly[1]

	assert.Equal(t, "Januar", jan.MonthName)
	assert.True(t, jan.WorkedHours.Equal(decimal.NewFromFloat(12.5)), "got %s", jan.WorkedHours)
	assert.True(t, jan.ExpectedHours.IsZero())
	assert.True(t, jan.OvertimeHours.Equal(decimal.NewFromFloat(12.5)))

	assert.Equal(t, "Februar", feb.MonthName)
	assert.True(t, feb.WorkedHours.Equal(decimal.NewFromInt(6)))

	assert.True(t, summary.TotalOvertimeHours.Equal(decimal.NewFromFloat(18.5)))
}

func TestOvertimeEngine_ExpectedHoursBaseline(t *testing.T) {
	// GIVEN: A Mon-Fri 40h week, no sessions, no vacation, no holidays
	// WHEN: Calculating 2025
	// THEN: March (21 weekdays) expects exactly 21 * 8 = 168 hours and its
	//       overtime is the full negative of that

	engine, store := newOvertimeFixture(t)
	seedSettings(t, store, track.DefaultWorkWeek, 40)

	summary, err := engine.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)

	march := summary.Monthly[2]
	assert.Equal(t, "März", march.MonthName)
	assert.True(t, march.WorkedHours.IsZero())
	assert.True(t, march.ExpectedHours.Equal(decimal.NewFromInt(168)), "got %s", march.ExpectedHours)
	assert.True(t, march.OvertimeHours.Equal(decimal.NewFromInt(-168)), "got %s", march.OvertimeHours)
}

func TestOvertimeEngine_OpenSessionsIgnored(t *testing.T) {
	engine, store := newOvertimeFixture(t)
	seedSettings(t, store, track.WorkWeek(0), 40)

	now := time.Now().UTC()
	require.NoError(t, store.SaveSession(context.Background(), track.WorkSession{
		ID:        "open-1",
		UserID:    "alice",
		Date:      track.NewDate(2025, time.January, 10),
		StartTime: time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC),
		CreatedAt: now,
		UpdatedAt: now,
	}))

	summary, err := engine.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)
	assert.True(t, summary.Monthly[0].WorkedHours.IsZero())
}

func TestOvertimeEngine_VacationAndHolidayReduceExpected(t *testing.T) {
	// GIVEN: A Mon-Fri 40h week, so 8 expected hours per workday
	// WHEN: March 3 (Monday) is vacation and March 4 (Tuesday) a holiday
	// THEN: March expects 16 hours less than the plain run

	baseline, baseStore := newOvertimeFixture(t)
	seedSettings(t, baseStore, track.DefaultWorkWeek, 40)

	plain, err := baseline.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)

	reduced, store := newOvertimeFixture(t, track.NewDate(2025, time.March, 4))
	seedSettings(t, store, track.DefaultWorkWeek, 40)
	now := time.Now().UTC()
	require.NoError(t, store.SaveVacationDay(context.Background(), track.VacationDay{
		ID:        "vac-1",
		UserID:    "alice",
		Date:      track.NewDate(2025, time.March, 3),
		CreatedAt: now,
		UpdatedAt: now,
	}))

	summary, err := reduced.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)

	diff := plain.Monthly[2].ExpectedHours.Sub(summary.Monthly[2].ExpectedHours)
	assert.True(t, diff.Equal(decimal.NewFromInt(16)), "expected 16 fewer hours, got %s", diff)

	assert.Equal(t, 1, summary.VacationDaysTaken)
	assert.Equal(t, 29, summary.VacationDaysRemaining)
	assert.Equal(t, 30, summary.VacationDaysPerYear)
	assert.Equal(t, 1, summary.HolidaysTaken)
}

func TestOvertimeEngine_WeekendHolidayNotCounted(t *testing.T) {
	// March 8, 2025 is a Saturday; a holiday there changes nothing for a
	// Mon-Fri mask.
	engine, store := newOvertimeFixture(t, track.NewDate(2025, time.March, 8))
	seedSettings(t, store, track.DefaultWorkWeek, 40)

	summary, err := engine.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.HolidaysTaken)
}

func TestOvertimeEngine_SchoolHolidayHours(t *testing.T) {
	// GIVEN: A school-holiday week Oct 13-17, 2025 (Mon-Fri)
	// WHEN: One of those days is vacation
	// THEN: The remaining four workdays count as 32 unworked hours

	engine, store := newOvertimeFixture(t)
	seedSettings(t, store, track.DefaultWorkWeek, 40)

	now := time.Now().UTC()
	require.NoError(t, store.SaveSchoolHoliday(context.Background(), track.SchoolHolidayPeriod{
		ID:        "sh-1",
		UserID:    "alice",
		Name:      "Herbstferien",
		StartDate: track.NewDate(2025, time.October, 13),
		EndDate:   track.NewDate(2025, time.October, 17),
		Year:      2025,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(t, store.SaveVacationDay(context.Background(), track.VacationDay{
		ID:        "vac-1",
		UserID:    "alice",
		Date:      track.NewDate(2025, time.October, 15),
		CreatedAt: now,
		UpdatedAt: now,
	}))

	summary, err := engine.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)
	assert.True(t, summary.SchoolHolidayHoursNotWorked.Equal(decimal.NewFromInt(32)),
		"got %s", summary.SchoolHolidayHoursNotWorked)
}

func TestOvertimeEngine_BoundaryCrossingPeriodFiledUnderStartYear(t *testing.T) {
	// A period starting December 2024 is filed under 2024 and therefore does
	// not contribute school-holiday hours to the 2025 summary, even for its
	// January days.
	engine, store := newOvertimeFixture(t)
	seedSettings(t, store, track.DefaultWorkWeek, 40)

	now := time.Now().UTC()
	require.NoError(t, store.SaveSchoolHoliday(context.Background(), track.SchoolHolidayPeriod{
		ID:        "sh-xmas",
		UserID:    "alice",
		Name:      "Weihnachtsferien",
		StartDate: track.NewDate(2024, time.December, 23),
		EndDate:   track.NewDate(2025, time.January, 6),
		Year:      2024,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	summary, err := engine.Calculate(context.Background(), "alice", &year2025)
	require.NoError(t, err)
	assert.True(t, summary.SchoolHolidayHoursNotWorked.IsZero())
}
