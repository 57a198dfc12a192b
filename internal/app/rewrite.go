package app

import (
	"github.com/cesargomez89/downpour/internal/domain"
)

// RewriteHistory reconciles the history store with the merged truth and
// persists it. It runs off the critical path, after mutation batches and
// task promotions.
//
// Same two-phase order as the reconciler: history copy first, fully
// released, then the task snapshot, then pure computation, then writes back
// to each store one at a time. rewriteMu serializes whole passes, so two
// overlapping rewrites cannot interleave their copy and write phases.
func (e *Engine) RewriteHistory() {
	e.rewriteMu.Lock()
	defer e.rewriteMu.Unlock()

	hist := e.History.GetAll()
	tasks := e.Tasks.Snapshot()

	// One record per id, and one record per URL: a retried-and-re-recorded
	// URL keeps only its newest record.
	byID := make(map[string]bool, len(hist))
	byURL := make(map[string]int, len(hist))
	cleaned := make([]domain.HistoryRecord, 0, len(hist))
	for _, rec := range hist {
		if byID[rec.ID] {
			continue
		}
		byID[rec.ID] = true

		key := domain.NormalizeURL(rec.URL)
		if prev, ok := byURL[key]; ok {
			if rec.Timestamp > cleaned[prev].Timestamp {
				cleaned[prev] = rec
			}
			continue
		}
		byURL[key] = len(cleaned)
		cleaned = append(cleaned, rec)
	}

	// Terminal tasks whose URL is recorded have been promoted; the lingering
	// live entry is the leftover of the completion window. Erase them in
	// separate task-store critical sections, history long released.
	removed := 0
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			continue
		}
		if _, ok := byURL[domain.NormalizeURL(t.URL)]; !ok {
			continue
		}
		if t.Status == domain.StatusError || t.Status == domain.StatusCancelled {
			// Error and cancelled tasks stay: they are retryable in place
			// and not what the record describes.
			continue
		}
		if e.Tasks.RemoveByID(t.ID) {
			removed++
		}
	}

	// byID holds exactly the ids this pass started from. Records appended
	// to the store after the copy have unseen ids and survive the swap.
	e.History.ReplaceKnown(cleaned, byID)
	if err := e.History.Persist(); err != nil {
		e.Log.Error("History persist failed", "error", err)
		return
	}
	if removed > 0 || len(cleaned) != len(hist) {
		e.Log.Debug("History rewritten", "records", len(cleaned), "pruned_tasks", removed)
	}
}
