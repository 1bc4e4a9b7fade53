/*
handlers.go - HTTP API handlers for the working-time tracker

PURPOSE:
  Exposes the tracking ledgers via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Work sessions:
    GET    /api/v1/work-sessions            List all sessions
    POST   /api/v1/work-sessions            Record a session (collapses duplicates)
    POST   /api/v1/work-sessions/sync       Batch upload, returns full server list
    GET    /api/v1/work-sessions/{id}       Get one session
    PUT    /api/v1/work-sessions/{id}       Partial update
    DELETE /api/v1/work-sessions/{id}       Idempotent delete

  Vacation days:
    GET    /api/v1/vacation-days?year=      List, optionally by year
    POST   /api/v1/vacation-days            Record a day off
    POST   /api/v1/vacation-days/sync       Full-state sync, returns set + deletions
    DELETE /api/v1/vacation-days/{id}       Delete

  School holidays:
    GET    /api/v1/school-holidays?year=    List, optionally by derived year
    POST   /api/v1/school-holidays          Create a period
    PUT    /api/v1/school-holidays/{id}     Replace a period
    DELETE /api/v1/school-holidays/{id}     Delete

  Settings / overtime:
    GET    /api/v1/settings                 Get (lazily created) settings
    PUT    /api/v1/settings                 Replace settings
    GET    /api/v1/overtime-summary?year=   Yearly overtime summary

  Probes (unauthenticated):
    GET    /health
    GET    /version

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input shape (dates, instants)
  3. Call domain logic (ledger, registry, engine)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map to HTTP status via errors.Is:
  - track.ErrValidation: 400
  - track.ErrNotFound:   404
  - track.ErrConflict:   409
  - anything else:       500, logged with request ID

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Owner resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tracklite/track-engine/track"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sessions       *track.SessionLedger
	Vacations      *track.VacationLedger
	SchoolHolidays *track.SchoolHolidayRegistry
	Settings       *track.SettingsService
	Overtime       *track.OvertimeEngine
	Log            *logrus.Logger

	// BuildVersion is reported by GET /version.
	BuildVersion string
}

// NewHandler wires the handlers to a store and holiday calendar.
func NewHandler(store track.Store, calendar track.Calendar, log *logrus.Logger, version string) *Handler {
	return &Handler{
		Sessions:       track.NewSessionLedger(store),
		Vacations:      track.NewVacationLedger(store),
		SchoolHolidays: track.NewSchoolHolidayRegistry(store),
		Settings:       track.NewSettingsService(store),
		Overtime:       track.NewOvertimeEngine(store, calendar),
		Log:            log,
		BuildVersion:   version,
	}
}

// =============================================================================
// PROBES
// =============================================================================

// Health reports liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports the build version.
// GET /version
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.BuildVersion})
}

// =============================================================================
// WORK SESSION HANDLERS
// =============================================================================

// ListSessions returns all of the owner's sessions, newest first.
// GET /api/v1/work-sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Sessions.List(r.Context(), ownerID(r))
	if err != nil {
		h.domainError(w, r, "Failed to list work sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(sessions))
}

// GetSession returns a single session.
// GET /api/v1/work-sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.domainError(w, r, "Failed to get work session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*s))
}

// CreateSession records a session. A session starting within five minutes of
// an existing one on the same date is collapsed into it, so the response may
// carry the absorbing session's ID instead of a new one.
// POST /api/v1/work-sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := sessionInputFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session", err)
		return
	}

	s, err := h.Sessions.Create(r.Context(), ownerID(r), in)
	if err != nil {
		h.domainError(w, r, "Failed to create work session", err)
		return
	}

	w.Header().Set("Location", "/api/v1/work-sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, toSessionDTO(*s))
}

// UpdateSession applies a partial update.
// PUT /api/v1/work-sessions/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var upd track.SessionUpdate
	if req.Date != nil {
		d, err := track.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		upd.Date = &d
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_time format (use RFC3339)", err)
			return
		}
		upd.StartTime = &t
	}
	if req.StopTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StopTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid stop_time format (use RFC3339)", err)
			return
		}
		upd.StopTime = &t
	}

	s, err := h.Sessions.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.domainError(w, r, "Failed to update work session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*s))
}

// DeleteSession removes a session. Deleting an absent session is a no-op.
// DELETE /api/v1/work-sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Sessions.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		h.domainError(w, r, "Failed to delete work session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncSessions reconciles a batch of client records and returns the owner's
// complete server-side list. Open records in the batch are skipped; nothing
// is ever deleted.
// POST /api/v1/work-sessions/sync
func (h *Handler) SyncSessions(w http.ResponseWriter, r *http.Request) {
	var req SyncSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	incoming := make([]track.SessionInput, 0, len(req.Sessions))
	for _, sr := range req.Sessions {
		in, err := sessionInputFromRequest(sr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session in batch", err)
			return
		}
		incoming = append(incoming, in)
	}

	sessions, err := h.Sessions.Sync(r.Context(), ownerID(r), incoming)
	if err != nil {
		h.domainError(w, r, "Failed to sync work sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func sessionInputFromRequest(req SaveSessionRequest) (track.SessionInput, error) {
	var in track.SessionInput

	date, err := track.ParseDate(req.Date)
	if err != nil {
		return in, err
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return in, err
	}

	in = track.SessionInput{
		ID:              req.ID,
		Date:            date,
		StartTime:       start,
		CalendarEventID: req.CalendarEventID,
	}
	if req.StopTime != nil {
		stop, err := time.Parse(time.RFC3339, *req.StopTime)
		if err != nil {
			return in, err
		}
		in.StopTime = &stop
	}
	return in, nil
}

// =============================================================================
// VACATION HANDLERS
// =============================================================================

// ListVacationDays returns the owner's vacation days, optionally by year.
// GET /api/v1/vacation-days?year=
func (h *Handler) ListVacationDays(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	days, err := h.Vacations.List(r.Context(), ownerID(r), year)
	if err != nil {
		h.domainError(w, r, "Failed to list vacation days", err)
		return
	}
	writeJSON(w, http.StatusOK, toVacationDTOs(days))
}

// CreateVacationDay records a day off. A second day on the same date is a
// conflict.
// POST /api/v1/vacation-days
func (h *Handler) CreateVacationDay(w http.ResponseWriter, r *http.Request) {
	var req CreateVacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := track.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	v, err := h.Vacations.Create(r.Context(), ownerID(r), date)
	if err != nil {
		h.domainError(w, r, "Failed to create vacation day", err)
		return
	}

	w.Header().Set("Location", "/api/v1/vacation-days/"+v.ID)
	writeJSON(w, http.StatusCreated, toVacationDTO(*v))
}

// DeleteVacationDay removes a day off.
// DELETE /api/v1/vacation-days/{id}
func (h *Handler) DeleteVacationDay(w http.ResponseWriter, r *http.Request) {
	if err := h.Vacations.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		h.domainError(w, r, "Failed to delete vacation day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncVacationDays applies the client's full believed state: server rows
// absent from the request are deleted and reported back, unknown rows are
// inserted, and overlapping rows resolve by newest update timestamp.
// POST /api/v1/vacation-days/sync
func (h *Handler) SyncVacationDays(w http.ResponseWriter, r *http.Request) {
	var req SyncVacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	incoming := make([]track.VacationInput, 0, len(req.Days))
	for _, d := range req.Days {
		date, err := track.ParseDate(d.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date in batch (use YYYY-MM-DD)", err)
			return
		}
		createdAt, err := time.Parse(time.RFC3339, d.CreatedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid created_at in batch (use RFC3339)", err)
			return
		}
		updatedAt, err := time.Parse(time.RFC3339, d.UpdatedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid updated_at in batch (use RFC3339)", err)
			return
		}
		incoming = append(incoming, track.VacationInput{
			ID:        d.ID,
			Date:      date,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}

	result, err := h.Vacations.Sync(r.Context(), ownerID(r), incoming)
	if err != nil {
		h.domainError(w, r, "Failed to sync vacation days", err)
		return
	}

	writeJSON(w, http.StatusOK, SyncVacationResponse{
		Days:       toVacationDTOs(result.ServerDays),
		DeletedIDs: result.DeletedIDs,
	})
}

// =============================================================================
// SCHOOL HOLIDAY HANDLERS
// =============================================================================

// ListSchoolHolidays returns the owner's periods, optionally by derived year.
// GET /api/v1/school-holidays?year=
func (h *Handler) ListSchoolHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	periods, err := h.SchoolHolidays.List(r.Context(), ownerID(r), year)
	if err != nil {
		h.domainError(w, r, "Failed to list school holidays", err)
		return
	}

	dtos := make([]SchoolHolidayDTO, 0, len(periods))
	for _, p := range periods {
		dtos = append(dtos, toSchoolHolidayDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSchoolHoliday records a named period.
// POST /api/v1/school-holidays
func (h *Handler) CreateSchoolHoliday(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeSchoolHoliday(w, r)
	if !ok {
		return
	}

	p, err := h.SchoolHolidays.Create(r.Context(), ownerID(r), in)
	if err != nil {
		h.domainError(w, r, "Failed to create school holiday", err)
		return
	}

	w.Header().Set("Location", "/api/v1/school-holidays/"+p.ID)
	writeJSON(w, http.StatusCreated, toSchoolHolidayDTO(*p))
}

// UpdateSchoolHoliday replaces a period's name and dates. The filing year is
// re-derived from the new start date.
// PUT /api/v1/school-holidays/{id}
func (h *Handler) UpdateSchoolHoliday(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeSchoolHoliday(w, r)
	if !ok {
		return
	}

	p, err := h.SchoolHolidays.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.domainError(w, r, "Failed to update school holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, toSchoolHolidayDTO(*p))
}

// DeleteSchoolHoliday removes a period.
// DELETE /api/v1/school-holidays/{id}
func (h *Handler) DeleteSchoolHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.SchoolHolidays.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		h.domainError(w, r, "Failed to delete school holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeSchoolHoliday(w http.ResponseWriter, r *http.Request) (track.SchoolHolidayInput, bool) {
	var req SchoolHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return track.SchoolHolidayInput{}, false
	}

	start, err := track.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return track.SchoolHolidayInput{}, false
	}
	end, err := track.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return track.SchoolHolidayInput{}, false
	}

	return track.SchoolHolidayInput{Name: req.Name, StartDate: start, EndDate: end}, true
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the owner's settings, creating defaults on first call.
// GET /api/v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context(), ownerID(r))
	if err != nil {
		h.domainError(w, r, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(*s))
}

// UpdateSettings replaces the owner's settings.
// PUT /api/v1/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Settings.Update(r.Context(), ownerID(r), track.SettingsUpdate{
		VacationDaysPerYear: req.VacationDaysPerYear,
		WorkHoursPerWeek:    decimal.NewFromFloat(req.WorkHoursPerWeek),
		WorkDays:            track.WorkWeek(req.WorkDays),
		Region:              req.Region,
	})
	if err != nil {
		h.domainError(w, r, "Failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(*s))
}

// =============================================================================
// OVERTIME HANDLERS
// =============================================================================

// GetOvertimeSummary returns the yearly overtime summary. Without a year
// parameter it covers the current year.
// GET /api/v1/overtime-summary?year=
func (h *Handler) GetOvertimeSummary(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	summary, err := h.Overtime.Calculate(r.Context(), ownerID(r), year)
	if err != nil {
		h.domainError(w, r, "Failed to calculate overtime", err)
		return
	}
	writeJSON(w, http.StatusOK, toOvertimeDTO(*summary))
}

// =============================================================================
// HELPERS
// =============================================================================

func yearParam(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// domainError maps domain errors to HTTP status. Unexpected errors are
// logged with the request ID and hidden behind a generic 500.
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, track.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, track.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, track.ErrConflict):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
