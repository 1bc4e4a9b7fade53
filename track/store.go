/*
store.go - Persistence ports consumed by the ledgers

PURPOSE:
  Defines the storage interfaces the domain depends on. The SQLite
  implementation lives in store/sqlite; tests may substitute their own.

CONVENTIONS:
  - Get* returns (nil, nil) when the entity is absent; the ledger decides
    whether absence is an error.
  - Save* is an upsert keyed on the entity ID.
  - Delete* returns whether a row was removed, not an error on absence.
  - Every query is scoped by the owner's user ID.

SEE ALSO:
  - store/sqlite/sqlite.go: the production implementation
*/
package track

import "context"

// SessionStore persists work sessions.
type SessionStore interface {
	// ListSessions returns all of the owner's sessions ordered by date
	// descending, then start time descending.
	ListSessions(ctx context.Context, userID string) ([]WorkSession, error)

	// ListSessionsOn returns the owner's sessions on a single date, in
	// start-time order.
	ListSessionsOn(ctx context.Context, userID string, date Date) ([]WorkSession, error)

	// ListSessionsInRange returns the owner's sessions with dates inside the
	// inclusive [from, to] range, in date order.
	ListSessionsInRange(ctx context.Context, userID string, from, to Date) ([]WorkSession, error)

	// GetSession returns the session, or nil if absent.
	GetSession(ctx context.Context, userID, id string) (*WorkSession, error)

	// SaveSession inserts or fully overwrites a session by ID.
	SaveSession(ctx context.Context, s WorkSession) error

	// DeleteSession removes a session, reporting whether it existed.
	DeleteSession(ctx context.Context, userID, id string) (bool, error)
}

// VacationStore persists vacation days. SaveVacationDay must surface
// ErrConflict when inserting a second day for the same (owner, date).
type VacationStore interface {
	// ListVacationDays returns the owner's vacation days in date order,
	// optionally restricted to a calendar year.
	ListVacationDays(ctx context.Context, userID string, year *int) ([]VacationDay, error)

	GetVacationDay(ctx context.Context, userID, id string) (*VacationDay, error)
	SaveVacationDay(ctx context.Context, v VacationDay) error
	DeleteVacationDay(ctx context.Context, userID, id string) (bool, error)
}

// SchoolHolidayStore persists school-holiday periods.
type SchoolHolidayStore interface {
	// ListSchoolHolidays returns the owner's periods ordered by start date,
	// optionally restricted to their derived (start-date) year.
	ListSchoolHolidays(ctx context.Context, userID string, year *int) ([]SchoolHolidayPeriod, error)

	GetSchoolHoliday(ctx context.Context, userID, id string) (*SchoolHolidayPeriod, error)
	SaveSchoolHoliday(ctx context.Context, p SchoolHolidayPeriod) error
	DeleteSchoolHoliday(ctx context.Context, userID, id string) (bool, error)
}

// SettingsStore persists per-owner settings, one row per owner.
type SettingsStore interface {
	// GetSettings returns the owner's settings, or nil if none exist yet.
	GetSettings(ctx context.Context, userID string) (*UserSettings, error)

	SaveSettings(ctx context.Context, s UserSettings) error
}

// Store bundles every port; the SQLite store implements all of them on one
// connection.
type Store interface {
	SessionStore
	VacationStore
	SchoolHolidayStore
	SettingsStore
}
