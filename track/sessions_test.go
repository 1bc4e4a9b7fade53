package track_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklite/track-engine/store/sqlite"
	"github.com/tracklite/track-engine/track"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newSessionLedger(t *testing.T) (*track.SessionLedger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return track.NewSessionLedger(store), store
}

func closedSession(date track.Date, startHour, startMin, stopHour int) track.SessionInput {
	start := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMin, 0, 0, time.UTC)
	stop := time.Date(date.Year(), date.Month(), date.Day(), stopHour, 0, 0, 0, time.UTC)
	return track.SessionInput{Date: date, StartTime: start, StopTime: &stop}
}

// =============================================================================
// DUPLICATE COLLAPSING TESTS
// =============================================================================

func TestSessionLedger_Create_CollapsesWithinWindow(t *testing.T) {
	// GIVEN: A session from 08:00 to 12:00 on March 10
	// WHEN: Recording another session starting 08:03 (within the 5-minute window)
	// THEN: The first session absorbs it; one session remains with the new stop time

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	first, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 0, 12))
	require.NoError(t, err)

	dup := closedSession(march10, 8, 3, 16)
	second, err := ledger.Create(ctx, "alice", dup)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "duplicate should collapse into the existing session")
	assert.Equal(t, 16, second.StopTime.Hour(), "absorbing session takes over the new stop time")

	all, err := ledger.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSessionLedger_Create_OutsideWindow_NewSession(t *testing.T) {
	// GIVEN: A session starting 08:00
	// WHEN: Recording a session starting 08:06 (just outside the window)
	// THEN: A separate session is created

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	first, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 0, 12))
	require.NoError(t, err)

	second, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 6, 16))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	all, err := ledger.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSessionLedger_Create_OpenDuplicate_KeepsRecordedStop(t *testing.T) {
	// GIVEN: A closed session from 08:00 to 12:00
	// WHEN: An open session starting 08:02 is recorded (a crash-recovery
	//       re-submission without a stop time)
	// THEN: It collapses into the existing session without erasing its stop

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	first, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 0, 12))
	require.NoError(t, err)

	second, err := ledger.Create(ctx, "alice", track.SessionInput{
		Date:      march10,
		StartTime: time.Date(2025, time.March, 10, 8, 2, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.StopTime, "recorded stop must survive an open re-submission")
	assert.Equal(t, 12, second.StopTime.Hour())

	all, err := ledger.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSessionLedger_Create_OtherDate_NotCollapsed(t *testing.T) {
	// GIVEN: A session on March 10 starting 08:00
	// WHEN: Recording a session on March 11 also starting 08:00
	// THEN: The window only applies within one date; both sessions exist

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	_, err := ledger.Create(ctx, "alice", closedSession(track.NewDate(2025, time.March, 10), 8, 0, 12))
	require.NoError(t, err)
	_, err = ledger.Create(ctx, "alice", closedSession(track.NewDate(2025, time.March, 11), 8, 0, 12))
	require.NoError(t, err)

	all, err := ledger.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSessionLedger_Create_OtherOwner_NotCollapsed(t *testing.T) {
	// GIVEN: Alice has a session starting 08:00
	// WHEN: Bob records a session starting 08:02 on the same date
	// THEN: Ledgers are owner-scoped; Bob gets his own session

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	_, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 0, 12))
	require.NoError(t, err)
	_, err = ledger.Create(ctx, "bob", closedSession(march10, 8, 2, 12))
	require.NoError(t, err)

	aliceAll, err := ledger.List(ctx, "alice")
	require.NoError(t, err)
	bobAll, err := ledger.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, aliceAll, 1)
	assert.Len(t, bobAll, 1)
}

// =============================================================================
// VALIDATION AND CRUD TESTS
// =============================================================================

func TestSessionLedger_Create_StopBeforeStart_Rejected(t *testing.T) {
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	stop := start.Add(-time.Hour)
	_, err := ledger.Create(ctx, "alice", track.SessionInput{
		Date:      track.NewDate(2025, time.March, 10),
		StartTime: start,
		StopTime:  &stop,
	})

	assert.ErrorIs(t, err, track.ErrValidation)
}

func TestSessionLedger_Create_OpenSessionAllowed(t *testing.T) {
	// A running stopwatch has no stop time yet; direct creates accept it.
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	s, err := ledger.Create(ctx, "alice", track.SessionInput{
		Date:      track.NewDate(2025, time.March, 10),
		StartTime: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, s.Open())
	assert.Zero(t, s.Duration())
}

func TestSessionLedger_CreateThenGet_RoundTrip(t *testing.T) {
	// A freshly created session reads back with the same fields.
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	in := closedSession(march10, 8, 0, 12)
	in.CalendarEventID = "cal-42"
	created, err := ledger.Create(ctx, "alice", in)
	require.NoError(t, err)

	got, err := ledger.Get(ctx, "alice", created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Date.Equal(march10))
	assert.True(t, got.StartTime.Equal(created.StartTime))
	require.NotNil(t, got.StopTime)
	assert.True(t, got.StopTime.Equal(*created.StopTime))
	assert.Equal(t, "cal-42", got.CalendarEventID)

	_, err = ledger.Get(ctx, "alice", "no-such-id")
	assert.ErrorIs(t, err, track.ErrNotFound)
}

func TestSessionLedger_Update_Partial(t *testing.T) {
	// GIVEN: A closed session
	// WHEN: Updating only the stop time
	// THEN: Other fields stay untouched

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	s, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 0, 12))
	require.NoError(t, err)

	newStop := time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC)
	updated, err := ledger.Update(ctx, "alice", s.ID, track.SessionUpdate{StopTime: &newStop})
	require.NoError(t, err)

	assert.Equal(t, s.StartTime, updated.StartTime)
	assert.True(t, updated.StopTime.Equal(newStop))
	assert.Equal(t, 9*time.Hour, updated.Duration())
}

func TestSessionLedger_Update_Empty_Rejected(t *testing.T) {
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	s, err := ledger.Create(ctx, "alice", closedSession(track.NewDate(2025, time.March, 10), 8, 0, 12))
	require.NoError(t, err)

	_, err = ledger.Update(ctx, "alice", s.ID, track.SessionUpdate{})
	assert.ErrorIs(t, err, track.ErrValidation)
}

func TestSessionLedger_Update_Absent_NotFound(t *testing.T) {
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	stop := time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC)
	_, err := ledger.Update(ctx, "alice", "no-such-id", track.SessionUpdate{StopTime: &stop})
	assert.ErrorIs(t, err, track.ErrNotFound)
}

func TestSessionLedger_Delete_Idempotent(t *testing.T) {
	// Deleting twice is not an error; the second call reports nothing removed.
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	s, err := ledger.Create(ctx, "alice", closedSession(track.NewDate(2025, time.March, 10), 8, 0, 12))
	require.NoError(t, err)

	removed, err := ledger.Delete(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = ledger.Delete(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

// =============================================================================
// SYNC TESTS
// =============================================================================

func TestSessionLedger_Sync_SkipsOpenRecords(t *testing.T) {
	// GIVEN: A batch containing one open and one closed record
	// WHEN: Syncing
	// THEN: Only the closed record lands on the server

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	open := track.SessionInput{
		ID:        "open-1",
		Date:      march10,
		StartTime: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
	}
	closed := closedSession(march10, 13, 0, 17)
	closed.ID = "closed-1"

	result, err := ledger.Sync(ctx, "alice", []track.SessionInput{open, closed})
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, "closed-1", result[0].ID)
}

func TestSessionLedger_Sync_OverwritesByID(t *testing.T) {
	// GIVEN: A server session with a known ID
	// WHEN: The batch carries the same ID with different times
	// THEN: The server row is replaced, not duplicated

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	in := closedSession(march10, 8, 0, 12)
	in.ID = "sess-1"
	_, err := ledger.Create(ctx, "alice", in)
	require.NoError(t, err)

	replacement := closedSession(march10, 9, 0, 18)
	replacement.ID = "sess-1"

	result, err := ledger.Sync(ctx, "alice", []track.SessionInput{replacement})
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, 9, result[0].StartTime.Hour())
	assert.Equal(t, 18, result[0].StopTime.Hour())
}

func TestSessionLedger_Sync_WindowFallback(t *testing.T) {
	// GIVEN: A server session starting 08:00 with a server-assigned ID
	// WHEN: The batch carries an unknown ID but a start within the window
	// THEN: The batch record is absorbed instead of inserted

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	existing, err := ledger.Create(ctx, "alice", closedSession(march10, 8, 0, 12))
	require.NoError(t, err)

	incoming := closedSession(march10, 8, 4, 16)
	incoming.ID = "client-generated-id"

	result, err := ledger.Sync(ctx, "alice", []track.SessionInput{incoming})
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, existing.ID, result[0].ID)
	assert.Equal(t, 16, result[0].StopTime.Hour())
}

func TestSessionLedger_Sync_NeverDeletes(t *testing.T) {
	// GIVEN: Two server sessions
	// WHEN: Syncing a batch that mentions neither
	// THEN: Both survive; sync only adds or updates

	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	_, err := ledger.Create(ctx, "alice", closedSession(track.NewDate(2025, time.March, 10), 8, 0, 12))
	require.NoError(t, err)
	_, err = ledger.Create(ctx, "alice", closedSession(track.NewDate(2025, time.March, 11), 8, 0, 12))
	require.NoError(t, err)

	result, err := ledger.Sync(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestSessionLedger_Sync_Idempotent(t *testing.T) {
	// Replaying the same batch must not create more sessions.
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()
	march10 := track.NewDate(2025, time.March, 10)

	in := closedSession(march10, 8, 0, 12)
	in.ID = "sess-1"
	batch := []track.SessionInput{in}

	first, err := ledger.Sync(ctx, "alice", batch)
	require.NoError(t, err)
	second, err := ledger.Sync(ctx, "alice", batch)
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestSessionLedger_Sync_InvalidInterval_Rejected(t *testing.T) {
	ledger, _ := newSessionLedger(t)
	ctx := context.Background()

	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	stop := start.Add(-time.Minute)
	_, err := ledger.Sync(ctx, "alice", []track.SessionInput{{
		Date:      track.NewDate(2025, time.March, 10),
		StartTime: start,
		StopTime:  &stop,
	}})

	assert.ErrorIs(t, err, track.ErrValidation)
}
