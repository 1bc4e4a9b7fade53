/*
Package track contains the domain model of the working-time tracker:
entities, the persistence ports, the server-side ledgers, and the
overtime engine.

ENTITIES:
  WorkSession:         one recorded work interval (open while StopTime is nil)
  VacationDay:         one taken vacation day, unique per (owner, date)
  SchoolHolidayPeriod: named inclusive date range, filed under its start year
  UserSettings:        per-owner accounting parameters

OWNERSHIP:
  Every entity belongs to exactly one owner (the authenticated user ID).
  All ledger operations take the owner explicitly and never return or touch
  another owner's rows.

SEE ALSO:
  - sessions.go, vacation.go, schoolholiday.go, settings.go: ledgers
  - overtime.go: the accounting engine
  - store.go: persistence port definitions
*/
package track

import (
	"math/bits"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CIVIL DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date with no time-of-day component, always UTC.
type Date struct {
	t time.Time
}

// NewDate builds a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) IsZero() bool          { return d.t.IsZero() }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Between reports whether d falls within the inclusive [from, to] range.
func (d Date) Between(from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}

func (d Date) AddDays(n int) Date   { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.t.AddDate(0, n, 0)) }

func (d Date) String() string { return d.t.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// WORK WEEK - 7-bit workday mask
// =============================================================================

// WorkWeek is a bit set of selectable workdays. Bit 0 is Monday, bit 6 is
// Sunday, regardless of any locale's week-start convention.
type WorkWeek uint8

const (
	// DefaultWorkWeek is Monday through Friday.
	DefaultWorkWeek WorkWeek = 0b0011111

	// workWeekMask limits a WorkWeek to its seven valid bits.
	workWeekMask WorkWeek = 0b1111111
)

// Includes reports whether the given weekday is a workday under this mask.
func (w WorkWeek) Includes(day time.Weekday) bool {
	// time.Weekday has Sunday=0; shift to Monday=0.
	bit := (int(day) + 6) % 7
	return w&(1<<bit) != 0
}

// Count returns the number of workdays per week.
func (w WorkWeek) Count() int {
	return bits.OnesCount8(uint8(w & workWeekMask))
}

// Valid reports whether no bits outside the seven weekday bits are set.
func (w WorkWeek) Valid() bool {
	return w&^workWeekMask == 0
}

// =============================================================================
// ENTITIES
// =============================================================================

// WorkSession is one recorded work interval. A session with a nil StopTime is
// open (in progress); open sessions are excluded from overtime accounting and
// must never be transmitted by the client reconciler.
type WorkSession struct {
	ID              string
	UserID          string
	Date            Date
	StartTime       time.Time
	StopTime        *time.Time
	CalendarEventID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SyncedAt        *time.Time
}

// Open reports whether the session has no stop time yet.
func (s WorkSession) Open() bool { return s.StopTime == nil }

// Duration returns the worked duration, or zero for an open session.
func (s WorkSession) Duration() time.Duration {
	if s.StopTime == nil {
		return 0
	}
	return s.StopTime.Sub(s.StartTime)
}

// VacationDay is one taken vacation day. At most one exists per (owner, date);
// the store enforces this with a uniqueness constraint.
type VacationDay struct {
	ID        string
	UserID    string
	Date      Date
	CreatedAt time.Time
	UpdatedAt time.Time
	SyncedAt  *time.Time
}

// SchoolHolidayPeriod is a named inclusive date range. Periods may overlap;
// membership checks treat the owner's periods as a union of closed intervals.
// The Year column is derived from the start date only, so a period crossing a
// year boundary is filed under the year it begins in.
type SchoolHolidayPeriod struct {
	ID        string
	UserID    string
	Name      string
	StartDate Date
	EndDate   Date
	Year      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the inclusive period.
func (p SchoolHolidayPeriod) Contains(d Date) bool {
	return d.Between(p.StartDate, p.EndDate)
}

// InAnyPeriod reports whether the date falls inside any of the given periods.
// Overlapping periods are not merged; any single hit is enough.
func InAnyPeriod(d Date, periods []SchoolHolidayPeriod) bool {
	for _, p := range periods {
		if p.Contains(d) {
			return true
		}
	}
	return false
}

// UserSettings holds the per-owner accounting parameters. A row is created
// lazily with defaults on first access and upserted thereafter.
type UserSettings struct {
	UserID              string
	VacationDaysPerYear int
	WorkHoursPerWeek    decimal.Decimal
	WorkDays            WorkWeek
	Region              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DefaultSettings returns the settings assigned to an owner on first access.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:              userID,
		VacationDaysPerYear: 30,
		WorkHoursPerWeek:    decimal.NewFromInt(40),
		WorkDays:            DefaultWorkWeek,
		Region:              "NW",
	}
}

// =============================================================================
// REGIONS - German Bundesland codes
// =============================================================================

// Regions lists the Bundesland codes the holiday calendar understands. The
// table lives here so settings validation and the calendar share one source.
var Regions = []string{
	"BW", "BY", "BE", "BB", "HB", "HH", "HE", "MV",
	"NI", "NW", "RP", "SL", "SN", "ST", "SH", "TH",
}

// KnownRegion reports whether the code names a supported Bundesland.
func KnownRegion(code string) bool {
	for _, r := range Regions {
		if r == code {
			return true
		}
	}
	return false
}
