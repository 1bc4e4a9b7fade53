/*
schoolholiday.go - School-holiday registry

Plain owner-scoped CRUD over named date ranges. The year filter matches the
period's derived year (= start date's year), not date-range overlap: a period
running Dec 20 through Jan 5 is filed under its start year only.
*/
package track

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SchoolHolidayInput carries the client-supplied fields of a period.
type SchoolHolidayInput struct {
	Name      string
	StartDate Date
	EndDate   Date
}

// SchoolHolidayRegistry implements the school-holiday operations.
type SchoolHolidayRegistry struct {
	store SchoolHolidayStore
}

// NewSchoolHolidayRegistry creates a registry over the given store.
func NewSchoolHolidayRegistry(store SchoolHolidayStore) *SchoolHolidayRegistry {
	return &SchoolHolidayRegistry{store: store}
}

// List returns the owner's periods ordered by start date, optionally limited
// to a derived year.
func (r *SchoolHolidayRegistry) List(ctx context.Context, userID string, year *int) ([]SchoolHolidayPeriod, error) {
	return r.store.ListSchoolHolidays(ctx, userID, year)
}

// Create records a new period.
func (r *SchoolHolidayRegistry) Create(ctx context.Context, userID string, in SchoolHolidayInput) (*SchoolHolidayPeriod, error) {
	if err := validatePeriod(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := SchoolHolidayPeriod{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Year:      in.StartDate.Year(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.SaveSchoolHoliday(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces a period's name and range; the derived year follows the
// new start date.
func (r *SchoolHolidayRegistry) Update(ctx context.Context, userID, id string, in SchoolHolidayInput) (*SchoolHolidayPeriod, error) {
	if err := validatePeriod(in); err != nil {
		return nil, err
	}

	p, err := r.store.GetSchoolHoliday(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &NotFoundError{Kind: "school holiday period", ID: id}
	}

	p.Name = in.Name
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.Year = in.StartDate.Year()
	p.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveSchoolHoliday(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a period; absence is ErrNotFound.
func (r *SchoolHolidayRegistry) Delete(ctx context.Context, userID, id string) error {
	removed, err := r.store.DeleteSchoolHoliday(ctx, userID, id)
	if err != nil {
		return err
	}
	if !removed {
		return &NotFoundError{Kind: "school holiday period", ID: id}
	}
	return nil
}

func validatePeriod(in SchoolHolidayInput) error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &ValidationError{Field: "dates", Reason: "start and end required"}
	}
	if in.EndDate.Before(in.StartDate) {
		return &ValidationError{Field: "endDate", Reason: "before start date"}
	}
	return nil
}
