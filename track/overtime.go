/*
overtime.go - Overtime accounting engine

PURPOSE:
  Pure computation of monthly and annual overtime against the owner's
  configured expectations. Combines closed work sessions, vacation days,
  public holidays and school-holiday periods; owns no persistence.

ACCOUNTING MODEL:
  expected hours per day  = weekly hours / workdays in the week mask
                            (zero when the mask is empty)
  expected days per month = calendar days whose weekday bit is set, minus
                            vacation days and public holidays on such days
  overtime per month      = worked hours - expected days * per-day rate

  The annual total accumulates before rounding; each reported figure is
  rounded to 2 decimal places at the output boundary only.

  Open sessions (no stop time) are excluded entirely. Public holidays on
  mask workdays are additionally counted as holidaysTaken. School-holiday
  opportunity hours tally one per-day rate for every day that is inside a
  registered period, a mask workday, not a vacation day and not a public
  holiday.
*/
package track

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Calendar resolves the public holidays of a region for one year.
// The holiday package provides the production implementation.
type Calendar interface {
	ForYear(region string, year int) []Date
}

// MonthlyOvertime is one row of the overtime summary's month table.
type MonthlyOvertime struct {
	Year          int
	Month         int
	MonthName     string
	OvertimeHours decimal.Decimal
	WorkedHours   decimal.Decimal
	ExpectedHours decimal.Decimal
}

// OvertimeSummary is the engine's output for one owner and year.
type OvertimeSummary struct {
	TotalOvertimeHours          decimal.Decimal
	Monthly                     []MonthlyOvertime
	VacationDaysTaken           int
	VacationDaysRemaining       int
	VacationDaysPerYear         int
	HolidaysTaken               int
	SchoolHolidayHoursNotWorked decimal.Decimal
}

// OvertimeEngine computes overtime summaries.
type OvertimeEngine struct {
	sessions       SessionStore
	vacations      VacationStore
	schoolHolidays SchoolHolidayStore
	settings       SettingsStore
	calendar       Calendar
}

// NewOvertimeEngine wires the engine to its collaborators.
func NewOvertimeEngine(store Store, calendar Calendar) *OvertimeEngine {
	return &OvertimeEngine{
		sessions:       store,
		vacations:      store,
		schoolHolidays: store,
		settings:       store,
		calendar:       calendar,
	}
}

// monthNames holds the localized month names used in summaries, following
// the German-audience origin of the tracker.
var monthNames = [13]string{"",
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Calculate produces the summary for the given year (current year when nil).
// It fails with ErrNotFound when the owner has no settings row; unlike the
// settings service it does not create one.
func (e *OvertimeEngine) Calculate(ctx context.Context, userID string, year *int) (*OvertimeSummary, error) {
	targetYear := time.Now().UTC().Year()
	if year != nil {
		targetYear = *year
	}

	settings, err := e.settings.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, &NotFoundError{Kind: "user settings", ID: userID}
	}

	yearStart := NewDate(targetYear, time.January, 1)
	yearEnd := NewDate(targetYear, time.December, 31)

	holidaySet := make(map[Date]bool)
	for _, h := range e.calendar.ForYear(settings.Region, targetYear) {
		holidaySet[h] = true
	}

	sessions, err := e.sessions.ListSessionsInRange(ctx, userID, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}

	vacationDays, err := e.vacations.ListVacationDays(ctx, userID, &targetYear)
	if err != nil {
		return nil, err
	}
	vacationSet := make(map[Date]bool, len(vacationDays))
	for _, v := range vacationDays {
		vacationSet[v.Date] = true
	}

	periods, err := e.schoolHolidays.ListSchoolHolidays(ctx, userID, &targetYear)
	if err != nil {
		return nil, err
	}

	perDay := decimal.Zero
	if n := settings.WorkDays.Count(); n > 0 {
		perDay = settings.WorkHoursPerWeek.Div(decimal.NewFromInt(int64(n)))
	}

	monthly := make([]MonthlyOvertime, 0, 12)
	total := decimal.Zero

	for month := time.January; month <= time.December; month++ {
		monthStart := NewDate(targetYear, month, 1)
		monthEnd := monthStart.AddMonths(1).AddDays(-1)

		worked := decimal.Zero
		for _, s := range sessions {
			if s.Open() || !s.Date.Between(monthStart, monthEnd) {
				continue
			}
			worked = worked.Add(decimal.NewFromFloat(s.Duration().Hours()))
		}

		expectedDays := 0
		for d := monthStart; !d.After(monthEnd); d = d.AddDays(1) {
			if settings.WorkDays.Includes(d.Weekday()) && !vacationSet[d] && !holidaySet[d] {
				expectedDays++
			}
		}
		expected := perDay.Mul(decimal.NewFromInt(int64(expectedDays)))
		overtime := worked.Sub(expected)
		total = total.Add(overtime)

		monthly = append(monthly, MonthlyOvertime{
			Year:          targetYear,
			Month:         int(month),
			MonthName:     monthNames[month],
			OvertimeHours: overtime.Round(2),
			WorkedHours:   worked.Round(2),
			ExpectedHours: expected.Round(2),
		})
	}

	holidaysTaken := 0
	for h := range holidaySet {
		if settings.WorkDays.Includes(h.Weekday()) {
			holidaysTaken++
		}
	}

	schoolHolidayHours := decimal.Zero
	for d := yearStart; !d.After(yearEnd); d = d.AddDays(1) {
		if InAnyPeriod(d, periods) && settings.WorkDays.Includes(d.Weekday()) &&
			!vacationSet[d] && !holidaySet[d] {
			schoolHolidayHours = schoolHolidayHours.Add(perDay)
		}
	}

	return &OvertimeSummary{
		TotalOvertimeHours:          total.Round(2),
		Monthly:                     monthly,
		VacationDaysTaken:           len(vacationDays),
		VacationDaysRemaining:       settings.VacationDaysPerYear - len(vacationDays),
		VacationDaysPerYear:         settings.VacationDaysPerYear,
		HolidaysTaken:               holidaysTaken,
		SchoolHolidayHoursNotWorked: schoolHolidayHours.Round(2),
	}, nil
}
