package app

import (
	"time"

	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/google/uuid"
)

type mutationKind int

const (
	mutDelete mutationKind = iota
	mutCancel
	mutRetry
	mutRetryMissing
)

// mutation is a deferred decision recorded while walking a snapshot. It
// carries only identity: a task handle, a history id, and the normalized URL.
// Nothing here is a pointer into either store.
type mutation struct {
	kind      mutationKind
	taskID    uint64
	historyID string
	url       string
}

func (e *Engine) request(kind mutationKind, entry domain.RenderEntry) {
	e.mu.Lock()
	e.pending = append(e.pending, mutation{
		kind:      kind,
		taskID:    entry.TaskID,
		historyID: entry.HistoryID,
		url:       domain.NormalizeURL(entry.URL),
	})
	e.mu.Unlock()
}

// RequestDelete records a deletion discovered during a snapshot walk. It is
// executed on the next Apply, never during the walk.
func (e *Engine) RequestDelete(entry domain.RenderEntry) { e.request(mutDelete, entry) }

// RequestCancel records a cooperative cancellation of a live task.
func (e *Engine) RequestCancel(entry domain.RenderEntry) { e.request(mutCancel, entry) }

// RequestRetry records a full retry of an entry.
func (e *Engine) RequestRetry(entry domain.RenderEntry) { e.request(mutRetry, entry) }

// RequestRetryMissing records a retry of only the playlist items that never
// made it to disk.
func (e *Engine) RequestRetryMissing(entry domain.RenderEntry) { e.request(mutRetryMissing, entry) }

// Apply executes the deferred batch under fresh locks, then kicks off the
// background history rewrite. Within each mutation the history store is
// always finished with before the task store is touched.
func (e *Engine) Apply() {
	e.mu.Lock()
	batch := e.pending
	e.pending = nil
	e.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	for _, m := range batch {
		switch m.kind {
		case mutDelete:
			e.applyDelete(m)
		case mutCancel:
			e.applyCancel(m)
		case mutRetry:
			e.applyRetry(m)
		case mutRetryMissing:
			e.applyRetryMissing(m)
		}
	}

	e.background(e.RewriteHistory)
}

func (e *Engine) applyDelete(m mutation) {
	if m.historyID != "" {
		// History first, released before any task work.
		if e.History.DeleteByID(m.historyID) {
			e.Log.Info("History record deleted", "history_id", m.historyID)
		}
		// Second, separate critical sections: drop any live task still
		// sharing the URL.
		for _, t := range e.Tasks.Snapshot() {
			if domain.NormalizeURL(t.URL) != m.url {
				continue
			}
			e.cancelAndRemove(t.ID)
		}
	}
	if m.taskID != 0 {
		e.cancelAndRemove(m.taskID)
	}
}

// cancelAndRemove marks a downloading task cancelled so its worker backs off
// at the next checkpoint, then erases it. The worker never sees the erased
// task again; its mutations become no-ops.
func (e *Engine) cancelAndRemove(id uint64) {
	e.Tasks.Mutate(id, func(t *domain.DownloadTask) {
		if t.Status == domain.StatusDownloading || t.Status == domain.StatusQueued {
			t.Transition(domain.StatusCancelled)
		}
	})
	if e.Tasks.RemoveByID(id) {
		e.Log.Info("Task removed", "task_id", id)
	}
}

func (e *Engine) applyCancel(m mutation) {
	if m.taskID == 0 {
		return
	}
	e.Tasks.Mutate(m.taskID, func(t *domain.DownloadTask) {
		if t.Status == domain.StatusDownloading || t.Status == domain.StatusQueued {
			t.Transition(domain.StatusCancelled)
			e.Log.Info("Task cancelled", "task_id", t.ID, "url", t.URL)
		}
	})
}

func (e *Engine) applyRetry(m mutation) {
	if m.taskID != 0 {
		requeued := false
		e.Tasks.Mutate(m.taskID, func(t *domain.DownloadTask) {
			if t.ResetForRetry() {
				t.RetryItems = pendingItems(t)
				requeued = true
			}
		})
		if requeued {
			e.Log.Info("Task requeued", "task_id", m.taskID)
			return
		}
		// Fall through: the live task could not be retried in place (it is
		// terminal-for-good or already gone); a history record may still be
		// retryable.
	}
	if m.historyID == "" {
		return
	}

	rec, ok := e.findRecord(m.historyID)
	if !ok {
		return
	}
	// Remove the record so the retried URL does not keep a stale terminal
	// entry in the merge, then seed a fresh task from its denormalized
	// fields. History lock is long released by the time the task store is
	// touched.
	e.History.DeleteByID(m.historyID)

	// Any live task still sharing the URL would win the merge over the
	// fresh one. Clear them out first, same as applyDelete.
	for _, t := range e.Tasks.Snapshot() {
		if domain.NormalizeURL(t.URL) != m.url {
			continue
		}
		e.cancelAndRemove(t.ID)
	}

	task := taskFromRecord(&rec)
	task.RetryItems = pendingItems(task)
	id := e.Tasks.Add(task)
	e.Log.Info("History record requeued", "history_id", m.historyID, "task_id", id, "url", rec.URL)
}

// pendingItems lists the playlist indices that never finished. A retry
// resubmits only these; downloaded items keep their files and would only be
// re-flagged by the downloader as already present. Nil means no selection:
// either the task is not a playlist, or nothing has finished yet and the
// whole list runs again.
func pendingItems(t *domain.DownloadTask) []int {
	if !t.IsPlaylist || len(t.PlaylistItems) == 0 {
		return nil
	}
	var out []int
	for i, item := range t.PlaylistItems {
		if !item.Downloaded {
			out = append(out, i)
		}
	}
	if len(out) == len(t.PlaylistItems) {
		return nil
	}
	return out
}

func (e *Engine) applyRetryMissing(m mutation) {
	if e.Paths == nil {
		return
	}

	if m.taskID != 0 {
		task, ok := e.Tasks.Get(m.taskID)
		if ok {
			missing := e.Paths.MissingItems(&task)
			if len(missing) == 0 {
				return
			}
			e.Tasks.Mutate(m.taskID, func(t *domain.DownloadTask) {
				if t.ResetForRetry() {
					t.RetryItems = missing
				}
			})
			e.Log.Info("Missing items requeued", "task_id", m.taskID, "items", len(missing))
			return
		}
	}
	if m.historyID == "" {
		return
	}

	rec, ok := e.findRecord(m.historyID)
	if !ok {
		return
	}
	shim := domain.DownloadTask{PlaylistItems: rec.Items, IsPlaylist: rec.IsPlaylist, PlaylistName: rec.PlaylistName}
	missing := e.Paths.MissingItems(&shim)
	if len(missing) == 0 {
		return
	}

	// The record stays: it still owns the items that did finish. The fresh
	// task only fetches the gaps; when it completes, the rewrite pass folds
	// the two back into one record.
	task := taskFromRecord(&rec)
	task.RetryItems = missing
	id := e.Tasks.Add(task)
	e.Log.Info("Missing items requeued from history", "history_id", m.historyID, "task_id", id, "items", len(missing))
}

func (e *Engine) findRecord(id string) (domain.HistoryRecord, bool) {
	for _, rec := range e.History.GetAll() {
		if rec.ID == id {
			return rec, true
		}
	}
	return domain.HistoryRecord{}, false
}

func taskFromRecord(rec *domain.HistoryRecord) *domain.DownloadTask {
	items := make([]domain.PlaylistItem, len(rec.Items))
	copy(items, rec.Items)
	return &domain.DownloadTask{
		URL:                 rec.URL,
		Status:              domain.StatusQueued,
		Platform:            rec.Platform,
		Filename:            rec.Filename,
		IsPlaylist:          rec.IsPlaylist,
		PlaylistName:        rec.PlaylistName,
		TotalPlaylistItems:  len(items),
		CurrentPlaylistItem: -1,
		PlaylistItems:       items,
		CreatedAt:           time.Now(),
	}
}

// RecordFinished promotes a finished task into history: the record is
// appended, the live task is discarded, and the durable copy is rewritten in
// the background. Append happens before the task store is touched, keeping
// the global lock order.
func (e *Engine) RecordFinished(taskID uint64, thumbnailB64 string) (domain.HistoryRecord, bool) {
	task, ok := e.Tasks.Get(taskID)
	if !ok || !task.Status.IsTerminal() {
		return domain.HistoryRecord{}, false
	}

	rec := task.Record(uuid.New().String(), thumbnailB64, time.Now())
	e.History.Append(rec)
	e.Tasks.RemoveByID(taskID)

	e.background(e.RewriteHistory)

	e.Log.Info("Task recorded to history", "task_id", taskID, "history_id", rec.ID, "status", rec.Status)
	return rec, true
}
