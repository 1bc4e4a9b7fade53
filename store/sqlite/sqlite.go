/*
Package sqlite provides the SQLite-backed implementation of the track
persistence ports.

PURPOSE:
  Implements every storage interface the domain layer depends on using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  track.SessionStore:       Work-session rows
  track.VacationStore:      Vacation-day rows
  track.SchoolHolidayStore: School-holiday-period rows
  track.SettingsStore:      One settings row per owner

KEY TABLES:
  work_sessions:          One row per recorded interval
  vacation_days:          UNIQUE(user_id, date) enforces one day off per
                          calendar day; violations surface as track.ErrConflict
  school_holiday_periods: Named inclusive ranges, year derived from start date
  user_settings:          Keyed by user_id, upserted

ENCODING:
  Calendar dates are stored as YYYY-MM-DD text, instants as RFC3339 UTC.
  Every statement is scoped by user_id; no query can cross owners.

INDEXES:
  - idx_work_sessions_user_date: duplicate-window lookups and year slices (hot path)
  - idx_vacation_days_user_date: one-per-day invariant, also serves year filters
  - idx_school_holidays_user_year: derived-year listing

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/track.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  sessions := track.NewSessionLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - track/store.go: Interface definitions
  - track/sessions.go: Session ledger using SessionStore
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/tracklite/track-engine/track"
)

// Store implements all track storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		stop_time TEXT,
		calendar_event_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		synced_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_work_sessions_user
		ON work_sessions(user_id);

	CREATE INDEX IF NOT EXISTS idx_work_sessions_user_date
		ON work_sessions(user_id, date);

	CREATE TABLE IF NOT EXISTS vacation_days (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		synced_at TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_vacation_days_user_date
		ON vacation_days(user_id, date);

	CREATE TABLE IF NOT EXISTS school_holiday_periods (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		year INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_school_holidays_user_year
		ON school_holiday_periods(user_id, year);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		vacation_days_per_year INTEGER NOT NULL,
		work_hours_per_week TEXT NOT NULL,
		work_days INTEGER NOT NULL,
		region TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION STORE (track.SessionStore interface)
// =============================================================================

const sessionColumns = `id, user_id, date, start_time, stop_time, calendar_event_id, created_at, updated_at, synced_at`

// ListSessions returns all of the owner's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]track.WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE user_id = ?
		ORDER BY date DESC, start_time DESC
	`
	return s.querySessions(ctx, query, userID)
}

// ListSessionsOn returns the owner's sessions on one date in start order.
func (s *Store) ListSessionsOn(ctx context.Context, userID string, date track.Date) ([]track.WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE user_id = ? AND date = ?
		ORDER BY start_time ASC
	`
	return s.querySessions(ctx, query, userID, date.String())
}

// ListSessionsInRange returns sessions with dates inside [from, to].
func (s *Store) ListSessionsInRange(ctx context.Context, userID string, from, to track.Date) ([]track.WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, start_time ASC
	`
	return s.querySessions(ctx, query, userID, from.String(), to.String())
}

// GetSession returns the session, or nil if absent.
func (s *Store) GetSession(ctx context.Context, userID, id string) (*track.WorkSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE user_id = ? AND id = ?
	`
	sessions, err := s.querySessions(ctx, query, userID, id)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// SaveSession inserts or fully overwrites a session by ID.
func (s *Store) SaveSession(ctx context.Context, ws track.WorkSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO work_sessions
		(id, user_id, date, start_time, stop_time, calendar_event_id, created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			start_time = excluded.start_time,
			stop_time = excluded.stop_time,
			calendar_event_id = excluded.calendar_event_id,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`

	_, err := s.db.ExecContext(ctx, query,
		ws.ID, ws.UserID, ws.Date.String(),
		ws.StartTime.UTC().Format(time.RFC3339),
		nullInstant(ws.StopTime),
		nullString(ws.CalendarEventID),
		ws.CreatedAt.UTC().Format(time.RFC3339),
		ws.UpdatedAt.UTC().Format(time.RFC3339),
		nullInstant(ws.SyncedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save work session: %w", err)
	}
	return nil
}

// DeleteSession removes a session, reporting whether it existed.
func (s *Store) DeleteSession(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM work_sessions WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete work session: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]track.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query work sessions: %w", err)
	}
	defer rows.Close()

	var sessions []track.WorkSession
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, ws)
	}
	return sessions, rows.Err()
}

func scanSession(rows *sql.Rows) (track.WorkSession, error) {
	var (
		ws            track.WorkSession
		date          string
		startTime     string
		stopTime      sql.NullString
		calendarEvent sql.NullString
		createdAt     string
		updatedAt     string
		syncedAt      sql.NullString
	)

	err := rows.Scan(&ws.ID, &ws.UserID, &date, &startTime, &stopTime,
		&calendarEvent, &createdAt, &updatedAt, &syncedAt)
	if err != nil {
		return ws, fmt.Errorf("failed to scan work session: %w", err)
	}

	ws.Date, _ = track.ParseDate(date)
	ws.StartTime, _ = time.Parse(time.RFC3339, startTime)
	ws.StopTime = parseInstant(stopTime)
	ws.CalendarEventID = calendarEvent.String
	ws.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	ws.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	ws.SyncedAt = parseInstant(syncedAt)
	return ws, nil
}

// =============================================================================
// VACATION STORE (track.VacationStore interface)
// =============================================================================

// ListVacationDays returns the owner's vacation days in date order,
// optionally restricted to one calendar year.
func (s *Store) ListVacationDays(ctx context.Context, userID string, year *int) ([]track.VacationDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, date, created_at, updated_at, synced_at
		FROM vacation_days
		WHERE user_id = ?
	`
	args := []any{userID}
	if year != nil {
		query += " AND date >= ? AND date <= ?"
		args = append(args,
			track.NewDate(*year, time.January, 1).String(),
			track.NewDate(*year, time.December, 31).String())
	}
	query += " ORDER BY date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacation days: %w", err)
	}
	defer rows.Close()

	var days []track.VacationDay
	for rows.Next() {
		v, err := scanVacationDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, v)
	}
	return days, rows.Err()
}

// GetVacationDay returns the vacation day, or nil if absent.
func (s *Store) GetVacationDay(ctx context.Context, userID, id string) (*track.VacationDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, date, created_at, updated_at, synced_at
		 FROM vacation_days WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := scanVacationDay(rows)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveVacationDay inserts or overwrites a vacation day by ID. A second day
// on the same (owner, date) trips the unique index and is reported as a
// domain conflict.
func (s *Store) SaveVacationDay(ctx context.Context, v track.VacationDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO vacation_days (id, user_id, date, created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`

	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.UserID, v.Date.String(),
		v.CreatedAt.UTC().Format(time.RFC3339),
		v.UpdatedAt.UTC().Format(time.RFC3339),
		nullInstant(v.SyncedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &track.ConflictError{
				Kind:   "vacation day",
				Detail: "a vacation day already exists on " + v.Date.String(),
			}
		}
		return fmt.Errorf("failed to save vacation day: %w", err)
	}
	return nil
}

// DeleteVacationDay removes a vacation day, reporting whether it existed.
func (s *Store) DeleteVacationDay(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM vacation_days WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete vacation day: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanVacationDay(rows *sql.Rows) (track.VacationDay, error) {
	var (
		v         track.VacationDay
		date      string
		createdAt string
		updatedAt string
		syncedAt  sql.NullString
	)
	err := rows.Scan(&v.ID, &v.UserID, &date, &createdAt, &updatedAt, &syncedAt)
	if err != nil {
		return v, fmt.Errorf("failed to scan vacation day: %w", err)
	}
	v.Date, _ = track.ParseDate(date)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	v.SyncedAt = parseInstant(syncedAt)
	return v, nil
}

// =============================================================================
// SCHOOL HOLIDAY STORE (track.SchoolHolidayStore interface)
// =============================================================================

// ListSchoolHolidays returns the owner's periods ordered by start date. The
// year filter matches the stored (start-date) year column.
func (s *Store) ListSchoolHolidays(ctx context.Context, userID string, year *int) ([]track.SchoolHolidayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, name, start_date, end_date, year, created_at, updated_at
		FROM school_holiday_periods
		WHERE user_id = ?
	`
	args := []any{userID}
	if year != nil {
		query += " AND year = ?"
		args = append(args, *year)
	}
	query += " ORDER BY start_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query school holidays: %w", err)
	}
	defer rows.Close()

	var periods []track.SchoolHolidayPeriod
	for rows.Next() {
		p, err := scanSchoolHoliday(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// GetSchoolHoliday returns the period, or nil if absent.
func (s *Store) GetSchoolHoliday(ctx context.Context, userID, id string) (*track.SchoolHolidayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, start_date, end_date, year, created_at, updated_at
		 FROM school_holiday_periods WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanSchoolHoliday(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveSchoolHoliday inserts or overwrites a period by ID.
func (s *Store) SaveSchoolHoliday(ctx context.Context, p track.SchoolHolidayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO school_holiday_periods
		(id, user_id, name, start_date, end_date, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			year = excluded.year,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Name,
		p.StartDate.String(), p.EndDate.String(), p.Year,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save school holiday period: %w", err)
	}
	return nil
}

// DeleteSchoolHoliday removes a period, reporting whether it existed.
func (s *Store) DeleteSchoolHoliday(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM school_holiday_periods WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete school holiday period: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanSchoolHoliday(rows *sql.Rows) (track.SchoolHolidayPeriod, error) {
	var (
		p         track.SchoolHolidayPeriod
		startDate string
		endDate   string
		createdAt string
		updatedAt string
	)
	err := rows.Scan(&p.ID, &p.UserID, &p.Name, &startDate, &endDate, &p.Year, &createdAt, &updatedAt)
	if err != nil {
		return p, fmt.Errorf("failed to scan school holiday period: %w", err)
	}
	p.StartDate, _ = track.ParseDate(startDate)
	p.EndDate, _ = track.ParseDate(endDate)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// =============================================================================
// SETTINGS STORE (track.SettingsStore interface)
// =============================================================================

// GetSettings returns the owner's settings row, or nil if absent.
func (s *Store) GetSettings(ctx context.Context, userID string) (*track.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		settings  track.UserSettings
		hours     string
		workDays  int
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, vacation_days_per_year, work_hours_per_week, work_days, region, created_at, updated_at
		 FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&settings.UserID, &settings.VacationDaysPerYear, &hours, &workDays,
		&settings.Region, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user settings: %w", err)
	}

	settings.WorkHoursPerWeek, err = decimal.NewFromString(hours)
	if err != nil {
		return nil, fmt.Errorf("corrupt work_hours_per_week %q: %w", hours, err)
	}
	settings.WorkDays = track.WorkWeek(workDays)
	settings.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	settings.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &settings, nil
}

// SaveSettings upserts the owner's settings row.
func (s *Store) SaveSettings(ctx context.Context, settings track.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO user_settings
		(user_id, vacation_days_per_year, work_hours_per_week, work_days, region, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			vacation_days_per_year = excluded.vacation_days_per_year,
			work_hours_per_week = excluded.work_hours_per_week,
			work_days = excluded.work_days,
			region = excluded.region,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		settings.UserID, settings.VacationDaysPerYear,
		settings.WorkHoursPerWeek.String(), int(settings.WorkDays), settings.Region,
		settings.CreatedAt.UTC().Format(time.RFC3339),
		settings.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user settings: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseInstant(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
