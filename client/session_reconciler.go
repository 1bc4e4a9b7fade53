/*
session_reconciler.go - Background push of locally recorded work sessions

DESIGN:
  - A cycle pushes the cache's pending closed sessions in one sync batch and
    replaces the cache with the server's answer. Open sessions stay local
    until they are stopped.
  - A mutex-protected guard flag makes cycles mutually exclusive; a cycle
    that finds one already running returns immediately.
  - The auto-sync timer starts only while pending records exist and stops
    itself once a cycle ends with none left. Failed cycles are logged,
    returned to the caller, and leave the timer running.
*/
package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tracklite/track-engine/api"
	"github.com/tracklite/track-engine/track"
)

// SessionReconciler keeps the local work-session cache and the server
// converged.
type SessionReconciler struct {
	cache BlobStore
	api   *API
	log   logrus.FieldLogger

	mu      sync.Mutex
	syncing bool

	timerMu sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSessionReconciler creates a reconciler over the given cache and server.
func NewSessionReconciler(cache BlobStore, apiClient *API, log logrus.FieldLogger) *SessionReconciler {
	return &SessionReconciler{cache: cache, api: apiClient, log: log}
}

// Record appends a session to the local cache, marked pending. It does not
// talk to the server; call RunCycle or StartAutoSync afterwards.
func (r *SessionReconciler) Record(s CachedSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, err := loadBlob[CachedSession](r.cache, sessionsKey)
	if err != nil {
		return err
	}
	s.Synced = false
	s.PendingSync = true
	return storeBlob(r.cache, sessionsKey, append(cached, s))
}

// RunCycle performs one reconciliation pass. A cycle already in flight makes
// it return immediately without error.
func (r *SessionReconciler) RunCycle(ctx context.Context) error {
	if !r.begin() {
		return nil
	}
	defer r.end()

	if err := r.cycle(ctx); err != nil {
		r.log.WithError(err).Error("work-session sync failed")
		return err
	}
	return nil
}

func (r *SessionReconciler) cycle(ctx context.Context) error {
	cached, err := loadBlob[CachedSession](r.cache, sessionsKey)
	if err != nil {
		return err
	}

	var batch []api.SaveSessionRequest
	var open []CachedSession
	for _, c := range cached {
		if c.Open() {
			// Never transmitted; kept verbatim across the merge.
			open = append(open, c)
			continue
		}
		if c.NeedsPush() {
			batch = append(batch, api.SaveSessionRequest{
				ID:              c.ID,
				Date:            c.Date.String(),
				StartTime:       c.StartTime.UTC().Format(time.RFC3339),
				StopTime:        instant(c.StopTime),
				CalendarEventID: c.CalendarEventID,
			})
		}
	}

	// An empty batch still runs: the response refreshes the cache.
	serverSessions, err := r.api.SyncSessions(ctx, batch)
	if err != nil {
		return err
	}

	merged := make([]CachedSession, 0, len(serverSessions)+len(open))
	for _, dto := range serverSessions {
		c, err := cachedSessionFromDTO(dto)
		if err != nil {
			return err
		}
		merged = append(merged, c)
	}
	merged = append(merged, open...)

	return storeBlob(r.cache, sessionsKey, merged)
}

// HasPending reports whether any closed cached session still needs a push.
func (r *SessionReconciler) HasPending() (bool, error) {
	cached, err := loadBlob[CachedSession](r.cache, sessionsKey)
	if err != nil {
		return false, err
	}
	for _, c := range cached {
		if !c.Open() && c.NeedsPush() {
			return true, nil
		}
	}
	return false, nil
}

// StartAutoSync starts the periodic sync timer if pending records exist and
// no timer is running yet. It reports whether a timer is now active.
func (r *SessionReconciler) StartAutoSync(interval time.Duration) (bool, error) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.ticker != nil {
		return true, nil
	}
	pending, err := r.HasPending()
	if err != nil {
		return false, err
	}
	if !pending {
		return false, nil
	}

	r.ticker = time.NewTicker(interval)
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.run()

	r.log.WithField("interval", interval).Info("work-session auto-sync started")
	return true, nil
}

// Stop halts the auto-sync timer. Safe to call when no timer is running.
func (r *SessionReconciler) Stop() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	r.stopLocked()
}

func (r *SessionReconciler) stopLocked() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.ticker = nil
}

func (r *SessionReconciler) run() {
	defer r.wg.Done()

	stop := r.stop
	tick := r.ticker.C
	for {
		select {
		case <-tick:
			if err := r.RunCycle(context.Background()); err != nil {
				// Keep ticking; the next cycle retries the same pending set.
				continue
			}

			pending, err := r.HasPending()
			if err != nil {
				r.log.WithError(err).Error("failed to inspect session cache")
				continue
			}
			if !pending {
				r.timerMu.Lock()
				r.stopLocked()
				r.timerMu.Unlock()
				r.log.Info("work-session auto-sync stopped, nothing pending")
				return
			}
		case <-stop:
			return
		}
	}
}

func (r *SessionReconciler) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.syncing {
		return false
	}
	r.syncing = true
	return true
}

func (r *SessionReconciler) end() {
	r.mu.Lock()
	r.syncing = false
	r.mu.Unlock()
}

func cachedSessionFromDTO(dto api.WorkSessionDTO) (CachedSession, error) {
	var c CachedSession

	date, err := track.ParseDate(dto.Date)
	if err != nil {
		return c, err
	}
	start, err := time.Parse(time.RFC3339, dto.StartTime)
	if err != nil {
		return c, err
	}

	c = CachedSession{
		ID:              dto.ID,
		Date:            date,
		StartTime:       start,
		CalendarEventID: dto.CalendarEventID,
		Synced:          true,
	}
	if dto.StopTime != nil {
		stop, err := time.Parse(time.RFC3339, *dto.StopTime)
		if err != nil {
			return c, err
		}
		c.StopTime = &stop
	}
	return c, nil
}

func instant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
