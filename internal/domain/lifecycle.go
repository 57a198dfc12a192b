package domain

// Known reports whether s is one of the statuses the reconciler understands.
// Entries with any other status do not appear in snapshots.
func (s Status) Known() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusCompleted,
		StatusError, StatusCancelled, StatusAlreadyExists:
		return true
	}
	return false
}

// IsActive reports whether the task is still in flight.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusDownloading
}

// IsTerminal reports whether the task has finished, for better or worse.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled, StatusAlreadyExists:
		return true
	}
	return false
}

// CanTransition reports whether moving a task from one status to another is
// legal. Error and cancelled tasks go back to queued only through an explicit
// retry; already_exists is terminal for good.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusDownloading || to == StatusCancelled || to == StatusAlreadyExists
	case StatusDownloading:
		return to.IsTerminal()
	case StatusError, StatusCancelled:
		return to == StatusQueued
	default:
		return false
	}
}

// Transition applies a status change if it is legal and reports whether it
// took effect.
func (t *DownloadTask) Transition(to Status) bool {
	if !CanTransition(t.Status, to) {
		return false
	}
	t.Status = to
	return true
}

// ResetForRetry requeues an error or cancelled task in place. Playlist item
// completion is untouched: retrying only re-fetches what never finished.
func (t *DownloadTask) ResetForRetry() bool {
	if !t.Transition(StatusQueued) {
		return false
	}
	t.Progress = 0
	t.ErrorMessage = ""
	t.CurrentPlaylistItem = -1
	t.CurrentItemTitle = ""
	return true
}

// MarkItemDownloaded records the completion of playlist item i, keeping the
// item's own file path and the index->path map consistent. Completion is
// monotonic: a downloaded item is never reset.
func (t *DownloadTask) MarkItemDownloaded(i int, path string, size int64) bool {
	if i < 0 || i >= len(t.PlaylistItems) {
		return false
	}
	item := &t.PlaylistItems[i]
	item.Downloaded = true
	if path != "" {
		item.FilePath = path
		if t.ItemFilePaths == nil {
			t.ItemFilePaths = make(map[int]string)
		}
		t.ItemFilePaths[i] = path
	}
	if size > 0 {
		item.FileSize = size
	}
	return true
}

// ItemFailed derives the error marker for playlist item i: the parent task
// errored, the item never finished, and the downloader had reached it before
// giving up. The marker is computed, never stored.
func (t *DownloadTask) ItemFailed(i int) bool {
	if t.Status != StatusError {
		return false
	}
	if i < 0 || i >= len(t.PlaylistItems) {
		return false
	}
	if t.PlaylistItems[i].Downloaded {
		return false
	}
	return t.CurrentPlaylistItem >= 0 && i <= t.CurrentPlaylistItem
}
