package domain

import "testing"

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusQueued, StatusDownloading},
		{StatusQueued, StatusCancelled},
		{StatusQueued, StatusAlreadyExists},
		{StatusDownloading, StatusCompleted},
		{StatusDownloading, StatusError},
		{StatusDownloading, StatusCancelled},
		{StatusDownloading, StatusAlreadyExists},
		{StatusError, StatusQueued},
		{StatusCancelled, StatusQueued},
	}
	for _, c := range legal {
		if !CanTransition(c.from, c.to) {
			t.Errorf("Expected %s -> %s to be legal", c.from, c.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusCompleted, StatusQueued},
		{StatusAlreadyExists, StatusQueued},
		{StatusAlreadyExists, StatusDownloading},
		{StatusError, StatusDownloading},
		{StatusQueued, StatusCompleted},
		{StatusQueued, StatusError},
		{StatusCompleted, StatusDownloading},
	}
	for _, c := range illegal {
		if CanTransition(c.from, c.to) {
			t.Errorf("Expected %s -> %s to be illegal", c.from, c.to)
		}
	}
}

func TestResetForRetry(t *testing.T) {
	task := &DownloadTask{
		Status:              StatusError,
		Progress:            0.7,
		ErrorMessage:        "network gone",
		CurrentPlaylistItem: 3,
		CurrentItemTitle:    "song",
		PlaylistItems: []PlaylistItem{
			{Title: "done", Downloaded: true, FilePath: "/m/done.mp3"},
		},
	}

	if !task.ResetForRetry() {
		t.Fatal("Expected retry of an error task to succeed")
	}
	if task.Status != StatusQueued {
		t.Errorf("Expected status queued, got %s", task.Status)
	}
	if task.Progress != 0 || task.ErrorMessage != "" {
		t.Errorf("Expected progress and error cleared, got %f %q", task.Progress, task.ErrorMessage)
	}
	if task.CurrentPlaylistItem != -1 {
		t.Errorf("Expected current item -1, got %d", task.CurrentPlaylistItem)
	}
	// Completed items survive a retry.
	if !task.PlaylistItems[0].Downloaded || task.PlaylistItems[0].FilePath != "/m/done.mp3" {
		t.Errorf("Expected completed item untouched, got %+v", task.PlaylistItems[0])
	}

	done := &DownloadTask{Status: StatusCompleted}
	if done.ResetForRetry() {
		t.Error("Expected retry of a completed task to be rejected")
	}
}

func TestMarkItemDownloaded_Monotonic(t *testing.T) {
	task := &DownloadTask{
		PlaylistItems: []PlaylistItem{{Title: "a"}, {Title: "b"}},
	}

	if !task.MarkItemDownloaded(0, "/m/a.mp3", 10) {
		t.Fatal("MarkItemDownloaded failed")
	}
	if !task.PlaylistItems[0].Downloaded {
		t.Error("Expected item 0 downloaded")
	}
	if task.ItemFilePaths[0] != "/m/a.mp3" {
		t.Errorf("Expected index map updated, got %v", task.ItemFilePaths)
	}
	if task.PlaylistItems[0].FilePath != "/m/a.mp3" {
		t.Errorf("Expected item path updated, got %q", task.PlaylistItems[0].FilePath)
	}

	// Marking again with an empty path must not clear anything.
	if !task.MarkItemDownloaded(0, "", 0) {
		t.Fatal("second MarkItemDownloaded failed")
	}
	if !task.PlaylistItems[0].Downloaded || task.PlaylistItems[0].FilePath != "/m/a.mp3" {
		t.Error("Expected completion to be monotonic")
	}

	if task.MarkItemDownloaded(5, "/nope", 0) {
		t.Error("Expected out-of-range index to be rejected")
	}
}

func TestItemFailed(t *testing.T) {
	task := &DownloadTask{
		Status:              StatusError,
		CurrentPlaylistItem: 1,
		PlaylistItems: []PlaylistItem{
			{Title: "a", Downloaded: true},
			{Title: "b"},
			{Title: "c"},
		},
	}

	if task.ItemFailed(0) {
		t.Error("Downloaded item must not be marked failed")
	}
	if !task.ItemFailed(1) {
		t.Error("Attempted, unfinished item should be marked failed")
	}
	if task.ItemFailed(2) {
		t.Error("Item beyond the last attempt must not be marked failed")
	}

	task.Status = StatusDownloading
	if task.ItemFailed(1) {
		t.Error("Items of a non-error task must never be marked failed")
	}
}
