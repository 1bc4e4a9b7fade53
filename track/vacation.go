/*
vacation.go - Vacation ledger (server side)

PURPOSE:
  CRUD and bulk reconciliation for one owner's taken-vacation-day set.

SYNC SEMANTICS:
  Unlike the work-session sync, the vacation sync treats the incoming list
  as the client's believed full state:
    - on server, absent from request  -> deleted, ID reported back
    - in request, absent from server  -> inserted verbatim (client ID and
                                         client timestamps)
    - present on both                 -> updated only when the incoming
                                         UpdatedAt is strictly newer
  Vacation days are a small, fully-synchronized set where absence means
  intentional deletion; sessions are an append-mostly log where it does not.
*/
package track

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VacationInput carries the client-supplied fields of a vacation day.
type VacationInput struct {
	ID        string
	Date      Date
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VacationSyncResult is the server's answer to a full-state sync.
type VacationSyncResult struct {
	ServerDays []VacationDay
	DeletedIDs []string
}

// VacationLedger implements the server-side vacation-day operations.
type VacationLedger struct {
	store VacationStore
}

// NewVacationLedger creates a ledger over the given store.
func NewVacationLedger(store VacationStore) *VacationLedger {
	return &VacationLedger{store: store}
}

// List returns the owner's vacation days in date order, optionally limited
// to a calendar year.
func (l *VacationLedger) List(ctx context.Context, userID string, year *int) ([]VacationDay, error) {
	return l.store.ListVacationDays(ctx, userID, year)
}

// Create records a vacation day. A second day on the same date for the same
// owner fails with ErrConflict.
func (l *VacationLedger) Create(ctx context.Context, userID string, date Date) (*VacationDay, error) {
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "required"}
	}

	now := time.Now().UTC()
	v := VacationDay{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
		SyncedAt:  &now,
	}
	if err := l.store.SaveVacationDay(ctx, v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes a vacation day; absence is ErrNotFound.
func (l *VacationLedger) Delete(ctx context.Context, userID, id string) error {
	removed, err := l.store.DeleteVacationDay(ctx, userID, id)
	if err != nil {
		return err
	}
	if !removed {
		return &NotFoundError{Kind: "vacation day", ID: id}
	}
	return nil
}

// Sync applies the client's full believed state and returns the post-merge
// server set plus the IDs it deleted, so the client can prune precisely.
func (l *VacationLedger) Sync(ctx context.Context, userID string, incoming []VacationInput) (*VacationSyncResult, error) {
	existing, err := l.store.ListVacationDays(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	byServerID := make(map[string]VacationDay, len(existing))
	for _, v := range existing {
		byServerID[v.ID] = v
	}
	inRequest := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		inRequest[in.ID] = true
	}

	// Absence in the client's full state means intentional deletion.
	var deleted []string
	for _, v := range existing {
		if !inRequest[v.ID] {
			if _, err := l.store.DeleteVacationDay(ctx, userID, v.ID); err != nil {
				return nil, err
			}
			deleted = append(deleted, v.ID)
		}
	}

	now := time.Now().UTC()
	for _, in := range incoming {
		server, known := byServerID[in.ID]
		if !known {
			v := VacationDay{
				ID:        in.ID,
				UserID:    userID,
				Date:      in.Date,
				CreatedAt: in.CreatedAt,
				UpdatedAt: in.UpdatedAt,
				SyncedAt:  &now,
			}
			if v.ID == "" {
				v.ID = uuid.NewString()
			}
			if err := l.store.SaveVacationDay(ctx, v); err != nil {
				return nil, err
			}
			continue
		}

		// Last-writer-wins by update timestamp, not arrival order.
		if in.UpdatedAt.After(server.UpdatedAt) {
			server.Date = in.Date
			server.UpdatedAt = in.UpdatedAt
			server.SyncedAt = &now
			if err := l.store.SaveVacationDay(ctx, server); err != nil {
				return nil, err
			}
		}
	}

	all, err := l.store.ListVacationDays(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		deleted = []string{}
	}
	return &VacationSyncResult{ServerDays: all, DeletedIDs: deleted}, nil
}
