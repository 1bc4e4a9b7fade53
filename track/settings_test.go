package track_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklite/track-engine/store/sqlite"
	"github.com/tracklite/track-engine/track"
)

func newSettingsService(t *testing.T) (*track.SettingsService, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return track.NewSettingsService(store), store
}

func TestSettingsService_Get_CreatesDefaults(t *testing.T) {
	// GIVEN: An owner with no settings row
	// WHEN: Reading settings for the first time
	// THEN: A row with the defaults appears and is persisted

	service, store := newSettingsService(t)
	ctx := context.Background()

	s, err := service.Get(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, 30, s.VacationDaysPerYear)
	assert.True(t, s.WorkHoursPerWeek.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, track.DefaultWorkWeek, s.WorkDays)
	assert.Equal(t, "NW", s.Region)

	row, err := store.GetSettings(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, row, "defaults must be persisted, not just returned")
}

func TestSettingsService_Update_PreservesCreatedAt(t *testing.T) {
	service, _ := newSettingsService(t)
	ctx := context.Background()

	created, err := service.Get(ctx, "alice")
	require.NoError(t, err)

	updated, err := service.Update(ctx, "alice", track.SettingsUpdate{
		VacationDaysPerYear: 25,
		WorkHoursPerWeek:    decimal.NewFromFloat(38.5),
		WorkDays:            track.DefaultWorkWeek,
		Region:              "BY",
	})
	require.NoError(t, err)

	assert.Equal(t, 25, updated.VacationDaysPerYear)
	assert.Equal(t, "BY", updated.Region)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestSettingsService_Update_Validation(t *testing.T) {
	service, _ := newSettingsService(t)
	ctx := context.Background()

	valid := track.SettingsUpdate{
		VacationDaysPerYear: 30,
		WorkHoursPerWeek:    decimal.NewFromInt(40),
		WorkDays:            track.DefaultWorkWeek,
		Region:              "NW",
	}

	tooManyDays := valid
	tooManyDays.VacationDaysPerYear = 400
	_, err := service.Update(ctx, "alice", tooManyDays)
	assert.ErrorIs(t, err, track.ErrValidation)

	tooManyHours := valid
	tooManyHours.WorkHoursPerWeek = decimal.NewFromInt(200)
	_, err = service.Update(ctx, "alice", tooManyHours)
	assert.ErrorIs(t, err, track.ErrValidation)

	badMask := valid
	badMask.WorkDays = track.WorkWeek(0xFF) // bit 7 has no weekday
	_, err = service.Update(ctx, "alice", badMask)
	assert.ErrorIs(t, err, track.ErrValidation)

	badRegion := valid
	badRegion.Region = "NRW"
	_, err = service.Update(ctx, "alice", badRegion)
	assert.ErrorIs(t, err, track.ErrValidation)

	// Two letters is not enough: the code must name a real Bundesland.
	unknownRegion := valid
	unknownRegion.Region = "ZZ"
	_, err = service.Update(ctx, "alice", unknownRegion)
	assert.ErrorIs(t, err, track.ErrValidation)
}

func TestWorkWeek_Mask(t *testing.T) {
	assert.Equal(t, 5, track.DefaultWorkWeek.Count())
	assert.True(t, track.DefaultWorkWeek.Includes(time.Monday))
	assert.False(t, track.DefaultWorkWeek.Includes(time.Saturday))
	assert.False(t, track.DefaultWorkWeek.Includes(time.Sunday))

	empty := track.WorkWeek(0)
	assert.Equal(t, 0, empty.Count())
	assert.True(t, empty.Valid(), "an empty mask is unusual but legal")
}
