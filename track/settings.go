/*
settings.go - Per-owner settings with lazy defaults

The first Get for an owner creates a row with the defaults (30 vacation days,
40 hours per week, Mon-Fri work week, region NW); subsequent updates upsert
the same row.
*/
package track

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SettingsUpdate carries the full replacement values for an owner's settings.
type SettingsUpdate struct {
	VacationDaysPerYear int
	WorkHoursPerWeek    decimal.Decimal
	WorkDays            WorkWeek
	Region              string
}

// SettingsService implements settings access with lazy creation.
type SettingsService struct {
	store SettingsStore
}

// NewSettingsService creates a service over the given store.
func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the owner's settings, creating the default row on first access.
func (s *SettingsService) Get(ctx context.Context, userID string) (*UserSettings, error) {
	existing, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	settings := DefaultSettings(userID)
	settings.CreatedAt = now
	settings.UpdatedAt = now
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update validates and upserts the owner's settings.
func (s *SettingsService) Update(ctx context.Context, userID string, upd SettingsUpdate) (*UserSettings, error) {
	if err := validateSettings(upd); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	settings := UserSettings{
		UserID:              userID,
		VacationDaysPerYear: upd.VacationDaysPerYear,
		WorkHoursPerWeek:    upd.WorkHoursPerWeek,
		WorkDays:            upd.WorkDays,
		Region:              upd.Region,
		UpdatedAt:           now,
	}

	if existing, err := s.store.GetSettings(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		settings.CreatedAt = existing.CreatedAt
	} else {
		settings.CreatedAt = now
	}

	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func validateSettings(upd SettingsUpdate) error {
	if upd.VacationDaysPerYear < 0 || upd.VacationDaysPerYear > 365 {
		return &ValidationError{Field: "vacationDaysPerYear", Reason: "out of range"}
	}
	if upd.WorkHoursPerWeek.IsNegative() || upd.WorkHoursPerWeek.GreaterThan(decimal.NewFromInt(168)) {
		return &ValidationError{Field: "workHoursPerWeek", Reason: "out of range"}
	}
	if !upd.WorkDays.Valid() {
		return &ValidationError{Field: "workDays", Reason: "bits outside Monday-Sunday set"}
	}
	if !KnownRegion(upd.Region) {
		return &ValidationError{Field: "region", Reason: "unknown Bundesland code"}
	}
	return nil
}
