/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

ENCODING:
  Calendar dates travel as YYYY-MM-DD strings, instants as RFC3339 UTC.
  Nullable instants (stop_time, synced_at) marshal as null / omitted.
  Decimal amounts (hours) marshal as JSON numbers.

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - track/types.go: Domain entities behind them
*/
package api

import (
	"time"

	"github.com/tracklite/track-engine/track"
)

// =============================================================================
// WORK SESSIONS
// =============================================================================

// WorkSessionDTO represents a work session in API responses.
type WorkSessionDTO struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	StopTime        *string `json:"stop_time"`
	CalendarEventID string  `json:"calendar_event_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	SyncedAt        *string `json:"synced_at,omitempty"`
}

// SaveSessionRequest is the body for creating a session or pushing one
// record of a sync batch. ID is optional on plain creates.
type SaveSessionRequest struct {
	ID              string  `json:"id,omitempty"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	StopTime        *string `json:"stop_time"`
	CalendarEventID string  `json:"calendar_event_id,omitempty"`
}

// UpdateSessionRequest is a partial update; absent fields stay unchanged.
type UpdateSessionRequest struct {
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	StopTime  *string `json:"stop_time,omitempty"`
}

// SyncSessionsRequest is the batch body for POST /work-sessions/sync.
type SyncSessionsRequest struct {
	Sessions []SaveSessionRequest `json:"sessions"`
}

// SyncSessionsResponse returns the full server-side session list after a sync.
type SyncSessionsResponse struct {
	Sessions []WorkSessionDTO `json:"sessions"`
}

// =============================================================================
// VACATION DAYS
// =============================================================================

// VacationDayDTO represents a vacation day in API responses.
type VacationDayDTO struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	SyncedAt  *string `json:"synced_at,omitempty"`
}

// CreateVacationRequest is the body for POST /vacation-days.
type CreateVacationRequest struct {
	Date string `json:"date"`
}

// SyncVacationRecord is one client-side vacation day in a full-state sync.
type SyncVacationRecord struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SyncVacationRequest is the full client state for POST /vacation-days/sync.
type SyncVacationRequest struct {
	Days []SyncVacationRecord `json:"days"`
}

// SyncVacationResponse is the server's answer to a full-state sync: the
// resulting server set plus the IDs the server removed.
type SyncVacationResponse struct {
	Days       []VacationDayDTO `json:"days"`
	DeletedIDs []string         `json:"deleted_ids"`
}

// =============================================================================
// SCHOOL HOLIDAYS
// =============================================================================

// SchoolHolidayDTO represents a school-holiday period in API responses.
type SchoolHolidayDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Year      int    `json:"year"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SchoolHolidayRequest is the body for creating or replacing a period.
type SchoolHolidayRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// SettingsDTO represents the owner's settings in API responses.
type SettingsDTO struct {
	VacationDaysPerYear int     `json:"vacation_days_per_year"`
	WorkHoursPerWeek    float64 `json:"work_hours_per_week"`
	WorkDays            int     `json:"work_days"`
	Region              string  `json:"region"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

// UpdateSettingsRequest is the full replacement body for PUT /settings.
type UpdateSettingsRequest struct {
	VacationDaysPerYear int     `json:"vacation_days_per_year"`
	WorkHoursPerWeek    float64 `json:"work_hours_per_week"`
	WorkDays            int     `json:"work_days"`
	Region              string  `json:"region"`
}

// =============================================================================
// OVERTIME
// =============================================================================

// MonthlyOvertimeDTO is one month row of the overtime summary.
type MonthlyOvertimeDTO struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	MonthName     string  `json:"month_name"`
	OvertimeHours float64 `json:"overtime_hours"`
	WorkedHours   float64 `json:"worked_hours"`
	ExpectedHours float64 `json:"expected_hours"`
}

// OvertimeSummaryDTO is the response for GET /overtime-summary.
type OvertimeSummaryDTO struct {
	TotalOvertimeHours          float64              `json:"total_overtime_hours"`
	Monthly                     []MonthlyOvertimeDTO `json:"monthly"`
	VacationDaysTaken           int                  `json:"vacation_days_taken"`
	VacationDaysRemaining       int                  `json:"vacation_days_remaining"`
	VacationDaysPerYear         int                  `json:"vacation_days_per_year"`
	HolidaysTaken               int                  `json:"holidays_taken"`
	SchoolHolidayHoursNotWorked float64              `json:"school_holiday_hours_not_worked"`
}

// =============================================================================
// MISC
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSessionDTO(s track.WorkSession) WorkSessionDTO {
	return WorkSessionDTO{
		ID:              s.ID,
		Date:            s.Date.String(),
		StartTime:       s.StartTime.UTC().Format(time.RFC3339),
		StopTime:        instantPtr(s.StopTime),
		CalendarEventID: s.CalendarEventID,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339),
		SyncedAt:        instantPtr(s.SyncedAt),
	}
}

func toSessionDTOs(sessions []track.WorkSession) []WorkSessionDTO {
	dtos := make([]WorkSessionDTO, 0, len(sessions))
	for _, s := range sessions {
		dtos = append(dtos, toSessionDTO(s))
	}
	return dtos
}

func toVacationDTO(v track.VacationDay) VacationDayDTO {
	return VacationDayDTO{
		ID:        v.ID,
		Date:      v.Date.String(),
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
		SyncedAt:  instantPtr(v.SyncedAt),
	}
}

func toVacationDTOs(days []track.VacationDay) []VacationDayDTO {
	dtos := make([]VacationDayDTO, 0, len(days))
	for _, v := range days {
		dtos = append(dtos, toVacationDTO(v))
	}
	return dtos
}

func toSchoolHolidayDTO(p track.SchoolHolidayPeriod) SchoolHolidayDTO {
	return SchoolHolidayDTO{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
		Year:      p.Year,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSettingsDTO(s track.UserSettings) SettingsDTO {
	return SettingsDTO{
		VacationDaysPerYear: s.VacationDaysPerYear,
		WorkHoursPerWeek:    s.WorkHoursPerWeek.InexactFloat64(),
		WorkDays:            int(s.WorkDays),
		Region:              s.Region,
		CreatedAt:           s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toOvertimeDTO(s track.OvertimeSummary) OvertimeSummaryDTO {
	monthly := make([]MonthlyOvertimeDTO, 0, len(s.Monthly))
	for _, m := range s.Monthly {
		monthly = append(monthly, MonthlyOvertimeDTO{
			Year:          m.Year,
			Month:         m.Month,
			MonthName:     m.MonthName,
			OvertimeHours: m.OvertimeHours.InexactFloat64(),
			WorkedHours:   m.WorkedHours.InexactFloat64(),
			ExpectedHours: m.ExpectedHours.InexactFloat64(),
		})
	}
	return OvertimeSummaryDTO{
		TotalOvertimeHours:          s.TotalOvertimeHours.InexactFloat64(),
		Monthly:                     monthly,
		VacationDaysTaken:           s.VacationDaysTaken,
		VacationDaysRemaining:       s.VacationDaysRemaining,
		VacationDaysPerYear:         s.VacationDaysPerYear,
		HolidaysTaken:               s.HolidaysTaken,
		SchoolHolidayHoursNotWorked: s.SchoolHolidayHoursNotWorked.InexactFloat64(),
	}
}

func instantPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
