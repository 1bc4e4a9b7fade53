/*
sessions.go - Work-session ledger (server side)

PURPOSE:
  CRUD and bulk reconciliation for one owner's recorded work intervals,
  with duplicate-session collapsing.

DUPLICATE COLLAPSING:
  A client may record a session once locally and push it again later under a
  different ID (e.g. recovered after a crash). Before inserting, create and
  sync look for an existing session on the same owner and date whose start
  lies within ±5 minutes of the incoming start; a hit updates that session's
  stop time instead of inserting a second row. This prevents double-counting
  the same interval without distributed-ID coordination.

  The lookup and the insert are not atomic against concurrent requests for
  the same owner: two near-simultaneous creates inside the window can still
  produce two rows. Accepted for the single-client-per-user usage pattern.

SYNC SEMANTICS:
  Sync never deletes. Incoming records overwrite by exact ID, fall back to
  the duplicate window, and insert with the client-supplied ID otherwise.
  Open records (no stop time) are skipped. The response is the owner's full
  session list so the client can replace its cache in one round trip.
*/
package track

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DuplicateWindow is the start-time proximity within which two sessions on
// the same date are treated as the same interval.
const DuplicateWindow = 5 * time.Minute

// SessionInput carries the client-supplied fields of a session.
type SessionInput struct {
	ID              string
	Date            Date
	StartTime       time.Time
	StopTime        *time.Time
	CalendarEventID string
}

// SessionUpdate is a partial update; nil fields are left unchanged.
type SessionUpdate struct {
	Date      *Date
	StartTime *time.Time
	StopTime  *time.Time
}

// SessionLedger implements the server-side work-session operations.
type SessionLedger struct {
	store SessionStore
}

// NewSessionLedger creates a ledger over the given store.
func NewSessionLedger(store SessionStore) *SessionLedger {
	return &SessionLedger{store: store}
}

// List returns all of the owner's sessions, newest first.
func (l *SessionLedger) List(ctx context.Context, userID string) ([]WorkSession, error) {
	return l.store.ListSessions(ctx, userID)
}

// Get returns a single session or ErrNotFound.
func (l *SessionLedger) Get(ctx context.Context, userID, id string) (*WorkSession, error) {
	s, err := l.store.GetSession(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &NotFoundError{Kind: "work session", ID: id}
	}
	return s, nil
}

// Create records a new session, collapsing into an existing one when the
// start lies within the duplicate window on the same date.
func (l *SessionLedger) Create(ctx context.Context, userID string, in SessionInput) (*WorkSession, error) {
	if err := validateInterval(in.StartTime, in.StopTime); err != nil {
		return nil, err
	}

	match, err := l.findDuplicate(ctx, userID, in.Date, in.StartTime)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return l.absorb(ctx, match, in)
	}

	now := time.Now().UTC()
	s := WorkSession{
		ID:              in.ID,
		UserID:          userID,
		Date:            in.Date,
		StartTime:       in.StartTime.UTC(),
		StopTime:        utcPtr(in.StopTime),
		CalendarEventID: in.CalendarEventID,
		CreatedAt:       now,
		UpdatedAt:       now,
		SyncedAt:        &now,
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := l.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update applies a partial update to an existing session.
func (l *SessionLedger) Update(ctx context.Context, userID, id string, upd SessionUpdate) (*WorkSession, error) {
	if upd.Date == nil && upd.StartTime == nil && upd.StopTime == nil {
		return nil, &ValidationError{Field: "update", Reason: "no fields to change"}
	}

	s, err := l.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Date != nil {
		s.Date = *upd.Date
	}
	if upd.StartTime != nil {
		s.StartTime = upd.StartTime.UTC()
	}
	if upd.StopTime != nil {
		s.StopTime = utcPtr(upd.StopTime)
	}
	if err := validateInterval(s.StartTime, s.StopTime); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.UpdatedAt = now
	s.SyncedAt = &now
	if err := l.store.SaveSession(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes a session, reporting whether it existed. Absence is not an
// error; delete is idempotent from the client's point of view.
func (l *SessionLedger) Delete(ctx context.Context, userID, id string) (bool, error) {
	return l.store.DeleteSession(ctx, userID, id)
}

// Sync reconciles a batch of client records and returns the owner's complete
// session list. It never deletes: client-side data loss must not propagate
// to the server.
func (l *SessionLedger) Sync(ctx context.Context, userID string, incoming []SessionInput) ([]WorkSession, error) {
	for _, in := range incoming {
		if in.StopTime == nil {
			// Open sessions are never accepted over sync.
			continue
		}
		if err := validateInterval(in.StartTime, in.StopTime); err != nil {
			return nil, err
		}

		if in.ID != "" {
			existing, err := l.store.GetSession(ctx, userID, in.ID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				if err := l.overwrite(ctx, existing, in); err != nil {
					return nil, err
				}
				continue
			}
		}

		match, err := l.findDuplicate(ctx, userID, in.Date, in.StartTime)
		if err != nil {
			return nil, err
		}
		if match != nil {
			if _, err := l.absorb(ctx, match, in); err != nil {
				return nil, err
			}
			continue
		}

		now := time.Now().UTC()
		s := WorkSession{
			ID:              in.ID,
			UserID:          userID,
			Date:            in.Date,
			StartTime:       in.StartTime.UTC(),
			StopTime:        utcPtr(in.StopTime),
			CalendarEventID: in.CalendarEventID,
			CreatedAt:       now,
			UpdatedAt:       now,
			SyncedAt:        &now,
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if err := l.store.SaveSession(ctx, s); err != nil {
			return nil, err
		}
	}

	return l.store.ListSessions(ctx, userID)
}

// findDuplicate returns an existing session on the same date whose start is
// within the duplicate window of start, or nil.
func (l *SessionLedger) findDuplicate(ctx context.Context, userID string, date Date, start time.Time) (*WorkSession, error) {
	sessions, err := l.store.ListSessionsOn(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		delta := sessions[i].StartTime.Sub(start.UTC())
		if delta < 0 {
			delta = -delta
		}
		if delta <= DuplicateWindow {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

// absorb folds an incoming duplicate into the matched session, taking over
// its stop time when the incoming record carries one. An open re-submission
// never erases a stop that is already recorded.
func (l *SessionLedger) absorb(ctx context.Context, match *WorkSession, in SessionInput) (*WorkSession, error) {
	now := time.Now().UTC()
	if in.StopTime != nil {
		match.StopTime = utcPtr(in.StopTime)
	}
	match.UpdatedAt = now
	match.SyncedAt = &now
	if err := validateInterval(match.StartTime, match.StopTime); err != nil {
		return nil, err
	}
	if err := l.store.SaveSession(ctx, *match); err != nil {
		return nil, err
	}
	return match, nil
}

// overwrite replaces an existing session's fields with the incoming record.
func (l *SessionLedger) overwrite(ctx context.Context, existing *WorkSession, in SessionInput) error {
	now := time.Now().UTC()
	existing.Date = in.Date
	existing.StartTime = in.StartTime.UTC()
	existing.StopTime = utcPtr(in.StopTime)
	if in.CalendarEventID != "" {
		existing.CalendarEventID = in.CalendarEventID
	}
	existing.UpdatedAt = now
	existing.SyncedAt = &now
	return l.store.SaveSession(ctx, *existing)
}

func validateInterval(start time.Time, stop *time.Time) error {
	if start.IsZero() {
		return &ValidationError{Field: "startTime", Reason: "required"}
	}
	if stop != nil && stop.Before(start) {
		return &ValidationError{Field: "stopTime", Reason: "before start time"}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
