/*
vacation_reconciler.go - Full-state vacation sync

Unlike work sessions, vacation days sync as a complete set: the client first
fetches the server's current list, overlays its own pending records, and
pushes the union as its full believed state. The server treats absence as
deletion and answers with the post-merge set plus the IDs it removed, which
then becomes the new cache verbatim. A cycle with no pending records stops
after the fetch.
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

// VacationReconciler keeps the local vacation cache and the server converged.
type VacationReconciler struct {
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

// NewVacationReconciler creates a reconciler over the given cache and server.
func NewVacationReconciler(cache BlobStore, apiClient *API, log logrus.FieldLogger) *VacationReconciler {
	return &VacationReconciler{cache: cache, api: apiClient, log: log}
}

// Record appends a vacation day to the local cache, marked pending.
func (r *VacationReconciler) Record(v CachedVacationDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, err := loadBlob[CachedVacationDay](r.cache, vacationsKey)
	if err != nil {
		return err
	}
	v.Synced = false
	v.PendingSync = true
	return storeBlob(r.cache, vacationsKey, append(cached, v))
}

// RunCycle performs one reconciliation pass. A cycle already in flight makes
// it return immediately without error.
func (r *VacationReconciler) RunCycle(ctx context.Context) error {
	if !r.begin() {
		return nil
	}
	defer r.end()

	if err := r.cycle(ctx); err != nil {
		r.log.WithError(err).Error("vacation sync failed")
		return err
	}
	return nil
}

func (r *VacationReconciler) cycle(ctx context.Context) error {
	cached, err := loadBlob[CachedVacationDay](r.cache, vacationsKey)
	if err != nil {
		return err
	}

	var pending []CachedVacationDay
	for _, c := range cached {
		if c.NeedsPush() {
			pending = append(pending, c)
		}
	}

	// The believed state starts from the server's current set so that days
	// created on other devices survive the full-state push.
	serverDays, err := r.api.ListVacationDays(ctx)
	if err != nil {
		return err
	}

	// With nothing to push, the fetch alone refreshes the cache; a sync call
	// would only restate what the server already holds.
	if len(pending) == 0 {
		return r.replaceCache(serverDays)
	}

	records := make(map[string]api.SyncVacationRecord, len(serverDays)+len(pending))
	for _, dto := range serverDays {
		records[dto.ID] = api.SyncVacationRecord{
			ID:        dto.ID,
			Date:      dto.Date,
			CreatedAt: dto.CreatedAt,
			UpdatedAt: dto.UpdatedAt,
		}
	}
	for _, c := range pending {
		// Pending records overlay the server's version of the same ID.
		records[c.ID] = api.SyncVacationRecord{
			ID:        c.ID,
			Date:      c.Date.String(),
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}

	state := make([]api.SyncVacationRecord, 0, len(records))
	for _, rec := range records {
		state = append(state, rec)
	}

	resp, err := r.api.SyncVacationDays(ctx, state)
	if err != nil {
		return err
	}
	if len(resp.DeletedIDs) > 0 {
		r.log.WithField("count", len(resp.DeletedIDs)).Info("server pruned vacation days")
	}
	return r.replaceCache(resp.Days)
}

// replaceCache makes the cache mirror the given server set.
func (r *VacationReconciler) replaceCache(days []api.VacationDayDTO) error {
	merged := make([]CachedVacationDay, 0, len(days))
	for _, dto := range days {
		c, err := cachedVacationFromDTO(dto)
		if err != nil {
			return err
		}
		merged = append(merged, c)
	}
	return storeBlob(r.cache, vacationsKey, merged)
}

// HasPending reports whether any cached vacation day still needs a push.
func (r *VacationReconciler) HasPending() (bool, error) {
	cached, err := loadBlob[CachedVacationDay](r.cache, vacationsKey)
	if err != nil {
		return false, err
	}
	for _, c := range cached {
		if c.NeedsPush() {
			return true, nil
		}
	}
	return false, nil
}

// StartAutoSync starts the periodic sync timer if pending records exist and
// no timer is running yet. It reports whether a timer is now active.
func (r *VacationReconciler) StartAutoSync(interval time.Duration) (bool, error) {
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

	r.log.WithField("interval", interval).Info("vacation auto-sync started")
	return true, nil
}

// Stop halts the auto-sync timer. Safe to call when no timer is running.
func (r *VacationReconciler) Stop() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	r.stopLocked()
}

func (r *VacationReconciler) stopLocked() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.ticker = nil
}

func (r *VacationReconciler) run() {
	defer r.wg.Done()

	stop := r.stop
	tick := r.ticker.C
	for {
		select {
		case <-tick:
			if err := r.RunCycle(context.Background()); err != nil {
				continue
			}

			pending, err := r.HasPending()
			if err != nil {
				r.log.WithError(err).Error("failed to inspect vacation cache")
				continue
			}
			if !pending {
				r.timerMu.Lock()
				r.stopLocked()
				r.timerMu.Unlock()
				r.log.Info("vacation auto-sync stopped, nothing pending")
				return
			}
		case <-stop:
			return
		}
	}
}

func (r *VacationReconciler) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.syncing {
		return false
	}
	r.syncing = true
	return true
}

func (r *VacationReconciler) end() {
	r.mu.Lock()
	r.syncing = false
	r.mu.Unlock()
}

func cachedVacationFromDTO(dto api.VacationDayDTO) (CachedVacationDay, error) {
	var c CachedVacationDay

	date, err := track.ParseDate(dto.Date)
	if err != nil {
		return c, err
	}
	createdAt, err := time.Parse(time.RFC3339, dto.CreatedAt)
	if err != nil {
		return c, err
	}
	updatedAt, err := time.Parse(time.RFC3339, dto.UpdatedAt)
	if err != nil {
		return c, err
	}

	return CachedVacationDay{
		ID:        dto.ID,
		Date:      date,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Synced:    true,
	}, nil
}
