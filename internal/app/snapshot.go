package app

import (
	"sort"

	"github.com/cesargomez89/downpour/internal/domain"
)

// Snapshot produces the merged, deduplicated, ordered render list.
//
// Two-phase copy: the history store is copied and its lock fully released
// before the task store is touched. Each lock is held for a single linear
// copy and never across the other store, so progress updates from workers and
// history writes from the UI never wait on each other.
func (e *Engine) Snapshot() []domain.RenderEntry {
	hist := e.History.GetAll()   // phase 1: history lock, copy, release
	tasks := e.Tasks.Snapshot()  // phase 2: tasks lock, copy, release
	return e.merge(tasks, hist)  // pure, no locks
}

func (e *Engine) merge(tasks []domain.DownloadTask, hist []domain.HistoryRecord) []domain.RenderEntry {
	// Newest record per normalized URL, for recovering a stable id and
	// thumbnail for tasks that have been recorded before.
	histByURL := make(map[string]*domain.HistoryRecord, len(hist))
	for i := range hist {
		key := domain.NormalizeURL(hist[i].URL)
		if prev, ok := histByURL[key]; !ok || hist[i].Timestamp > prev.Timestamp {
			histByURL[key] = &hist[i]
		}
	}

	entries := make([]domain.RenderEntry, 0, len(tasks)+len(hist))
	seen := make(map[string]bool, len(tasks))
	activeURLs := make(map[string]bool, len(tasks))

	for i := range tasks {
		t := &tasks[i]
		if !t.Status.Known() {
			// Unknown status renders as nothing.
			continue
		}
		key := domain.NormalizeURL(t.URL)
		if seen[key] {
			// Accidental duplicate submission: first occurrence wins.
			continue
		}
		seen[key] = true

		rec := histByURL[key]
		if t.Status.IsTerminal() && rec != nil {
			// History is authoritative for finished work.
			continue
		}

		if t.Status.IsActive() {
			activeURLs[key] = true
		}

		entry := taskEntry(t)
		if rec != nil {
			entry.HistoryID = rec.ID
			entry.ThumbnailB64 = rec.ThumbnailB64
		}
		if e.Paths != nil && t.IsPlaylist {
			entry.MissingCount = e.Paths.MissingFileCount(t)
		}
		entries = append(entries, entry)
	}

	for i := range hist {
		if activeURLs[domain.NormalizeURL(hist[i].URL)] {
			// The live task and the record are one logical entry; the task
			// wins while it is active and already carries the record's id
			// and thumbnail.
			continue
		}
		entry := recordEntry(&hist[i])
		if e.Paths != nil && hist[i].IsPlaylist {
			shim := domain.DownloadTask{PlaylistItems: hist[i].Items}
			entry.MissingCount = e.Paths.MissingFileCount(&shim)
		}
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries
}

// sortEntries imposes the total render order: active work first, then newest
// first, URL as tiebreak, and identity fields last so the order is total even
// when two records briefly share a URL before a rewrite pass folds them.
func sortEntries(entries []domain.RenderEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		ar, br := partitionRank(a.Status), partitionRank(b.Status)
		if ar != br {
			return ar < br
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		au, bu := domain.NormalizeURL(a.URL), domain.NormalizeURL(b.URL)
		if au != bu {
			return au < bu
		}
		if (a.TaskID != 0) != (b.TaskID != 0) {
			return a.TaskID != 0
		}
		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		return a.HistoryID < b.HistoryID
	})
}

func partitionRank(s domain.Status) int {
	if s.IsActive() {
		return 0
	}
	return 1
}

func taskEntry(t *domain.DownloadTask) domain.RenderEntry {
	items := make([]domain.PlaylistItem, len(t.PlaylistItems))
	copy(items, t.PlaylistItems)
	return domain.RenderEntry{
		TaskID:       t.ID,
		URL:          t.URL,
		Status:       t.Status,
		Progress:     t.Progress,
		Platform:     t.Platform,
		Filename:     t.Filename,
		FilePath:     t.FilePath,
		FileSize:     t.FileSize,
		IsPlaylist:   t.IsPlaylist,
		PlaylistName: t.PlaylistName,
		TotalItems:   t.TotalPlaylistItems,
		CurrentItem:  t.CurrentPlaylistItem,
		CurrentTitle: t.CurrentItemTitle,
		Items:        items,
		Timestamp:    t.CreatedAt.Unix(),
		ErrorMessage: t.ErrorMessage,
	}
}

func recordEntry(rec *domain.HistoryRecord) domain.RenderEntry {
	items := make([]domain.PlaylistItem, len(rec.Items))
	copy(items, rec.Items)
	return domain.RenderEntry{
		HistoryID:    rec.ID,
		URL:          rec.URL,
		Status:       rec.Status,
		Progress:     1,
		Platform:     rec.Platform,
		Filename:     rec.Filename,
		FilePath:     rec.FilePath,
		FileSize:     rec.FileSize,
		IsPlaylist:   rec.IsPlaylist,
		PlaylistName: rec.PlaylistName,
		TotalItems:   len(rec.Items),
		CurrentItem:  -1,
		Items:        items,
		ThumbnailB64: rec.ThumbnailB64,
		Timestamp:    rec.Timestamp,
	}
}

// StatusCounts tallies the merged view per status, for the stats endpoint.
func (e *Engine) StatusCounts() map[domain.Status]int {
	counts := make(map[domain.Status]int)
	for _, entry := range e.Snapshot() {
		counts[entry.Status]++
	}
	return counts
}
