// Package services implements higher-level business logic that coordinates across repositories and shared state.
// The edit flusher, for example, owns the debounce timers and the read-your-writes overlay that sit between the inline editor's PATCH requests and the org_trials table.
package services

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/lexxi/lexxi/internal/db/repositories"
	"github.com/lexxi/lexxi/internal/safego"
	"github.com/lexxi/lexxi/internal/telemetry"
)

// editKey identifies one pending write: one record, one field.
type editKey struct {
	teamID     string
	orgTrialID string
	field      string
}

// pendingEdit is the value waiting out its debounce window, plus the timer
// that will flush it. Re-editing the same key stops the timer and replaces
// both.
type pendingEdit struct {
	value interface{}
	timer *time.Timer
}

// EditFlusher coalesces inline-edit writes. Each (record, field) pair has at
// most one scheduled write at any instant: an edit arriving before the
// debounce window elapses cancels the pending timer and reschedules with the
// new value, so exactly one UPDATE carrying the latest value is issued per
// quiet period. Distinct fields of the same record flush independently.
//
// Pending and recently written values are mirrored in an overlay map so list
// responses can merge them in, giving the editor read-your-writes behaviour
// ahead of the flush. A successful flush clears the overlay entry unless the
// field was re-edited meanwhile; a failed flush keeps it, because the
// optimistic value is not rolled back (last-write-wins, no conflict
// resolution).
type EditFlusher struct {
	repo         *repositories.SubscriptionRepository
	debounce     time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[editKey]*pendingEdit
	overlay map[editKey]interface{}
	closed  bool
	wg      sync.WaitGroup
}

// NewEditFlusher creates an EditFlusher writing through the given repository.
func NewEditFlusher(repo *repositories.SubscriptionRepository, debounce, writeTimeout time.Duration) *EditFlusher {
	return &EditFlusher{
		repo:         repo,
		debounce:     debounce,
		writeTimeout: writeTimeout,
		pending:      make(map[editKey]*pendingEdit),
		overlay:      make(map[editKey]interface{}),
	}
}

// Schedule records an edit in the overlay and (re)starts its debounce timer.
// Returns false when the flusher has been closed.
func (f *EditFlusher) Schedule(teamID, orgTrialID, field string, value interface{}) bool {
	key := editKey{teamID: teamID, orgTrialID: orgTrialID, field: field}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	f.overlay[key] = value

	if p, ok := f.pending[key]; ok {
		// Same field edited again inside the window: replace the pending
		// value and push the deadline out.
		p.timer.Stop()
		p.value = value
		p.timer.Reset(f.debounce)
		return true
	}

	p := &pendingEdit{value: value}
	p.timer = time.AfterFunc(f.debounce, func() {
		safego.Go(func() { f.flush(key) })
	})
	f.pending[key] = p
	telemetry.EditQueueDepth.Set(float64(len(f.pending)))
	return true
}

// flush issues the coalesced UPDATE for one key. Called from the timer
// goroutine when the window elapses, and from Close for drains.
func (f *EditFlusher) flush(key editKey) {
	f.mu.Lock()
	p, ok := f.pending[key]
	if !ok {
		f.mu.Unlock()
		return
	}
	delete(f.pending, key)
	telemetry.EditQueueDepth.Set(float64(len(f.pending)))
	value := p.value
	f.wg.Add(1)
	f.mu.Unlock()
	defer f.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), f.writeTimeout)
	defer cancel()

	err := f.repo.UpdateField(ctx, key.teamID, key.orgTrialID, key.field, value)
	if err != nil {
		status := "error"
		if err == sql.ErrNoRows {
			status = "gone"
		}
		telemetry.EditFlushesTotal.WithLabelValues(key.field, status).Inc()
		// The overlay entry stays: the caller keeps seeing the value it
		// wrote, and the next edit of this field retries the write.
		slog.Error("edit flush failed, keeping optimistic value",
			"org_trial_id", key.orgTrialID,
			"field", key.field,
			"error", err)
		return
	}

	telemetry.EditFlushesTotal.WithLabelValues(key.field, "ok").Inc()

	f.mu.Lock()
	// Only clear the overlay if the field was not re-edited while the
	// UPDATE was in flight; a newer pending value must stay visible.
	if _, reEdited := f.pending[key]; !reEdited && f.overlay[key] == value {
		delete(f.overlay, key)
	}
	f.mu.Unlock()
}

// Overlay returns the pending values for one record as field -> value.
// Returns nil when the record has no pending edits.
func (f *EditFlusher) Overlay(teamID, orgTrialID string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out map[string]interface{}
	for key, value := range f.overlay {
		if key.teamID == teamID && key.orgTrialID == orgTrialID {
			if out == nil {
				out = make(map[string]interface{})
			}
			out[key.field] = value
		}
	}
	return out
}

// PendingCount returns the number of writes waiting out their window.
func (f *EditFlusher) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Close drains the flusher: every pending write is flushed immediately and
// Close blocks until the UPDATEs complete. Schedule calls after Close are
// rejected.
func (f *EditFlusher) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true

	keys := make([]editKey, 0, len(f.pending))
	for key, p := range f.pending {
		p.timer.Stop()
		keys = append(keys, key)
	}
	f.mu.Unlock()

	for _, key := range keys {
		f.flush(key)
	}
	f.wg.Wait()
}
