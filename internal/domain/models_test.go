package domain

import (
	"testing"
	"time"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"  https://Example.com/Watch?v=ABC  ": "https://example.com/watch?v=abc",
		"https://example.com/a":               "https://example.com/a",
		"\thttps://EXAMPLE.com\n":             "https://example.com",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDownloadTask_Clone(t *testing.T) {
	task := &DownloadTask{
		ID:         7,
		URL:        "https://example.com/list",
		Status:     StatusDownloading,
		IsPlaylist: true,
		PlaylistItems: []PlaylistItem{
			{Title: "one", Downloaded: true, FilePath: "/tmp/one.mp3"},
			{Title: "two"},
		},
		ItemFilePaths: map[int]string{0: "/tmp/one.mp3"},
		ItemRenames:   map[int]string{1: "renamed"},
		RetryItems:    []int{1},
	}

	clone := task.Clone()

	// Mutate the clone and verify the original is untouched.
	clone.PlaylistItems[1].Downloaded = true
	clone.ItemFilePaths[1] = "/tmp/two.mp3"
	clone.ItemRenames[0] = "other"
	clone.RetryItems[0] = 99

	if task.PlaylistItems[1].Downloaded {
		t.Error("clone shares PlaylistItems backing array with original")
	}
	if _, ok := task.ItemFilePaths[1]; ok {
		t.Error("clone shares ItemFilePaths map with original")
	}
	if _, ok := task.ItemRenames[0]; ok {
		t.Error("clone shares ItemRenames map with original")
	}
	if task.RetryItems[0] != 1 {
		t.Error("clone shares RetryItems backing array with original")
	}
}

func TestDownloadTask_Record(t *testing.T) {
	now := time.Unix(1700000000, 0)
	task := &DownloadTask{
		URL:      "https://example.com/v",
		Status:   StatusCompleted,
		Platform: "youtube",
		Filename: "v.mp3",
		FilePath: "/music/v.mp3",
		FileSize: 1234,
		PlaylistItems: []PlaylistItem{
			{Title: "a", Downloaded: true},
		},
	}

	rec := task.Record("h1", "thumbdata", now)
	if rec.ID != "h1" {
		t.Errorf("Expected record id h1, got %s", rec.ID)
	}
	if rec.Timestamp != now.Unix() {
		t.Errorf("Expected timestamp %d, got %d", now.Unix(), rec.Timestamp)
	}
	if rec.Status != StatusCompleted {
		t.Errorf("Expected status completed, got %s", rec.Status)
	}
	if len(rec.Items) != 1 || rec.Items[0].Title != "a" {
		t.Errorf("Expected denormalized items, got %+v", rec.Items)
	}
	if rec.ThumbnailB64 != "thumbdata" {
		t.Errorf("Expected thumbnail to be carried, got %q", rec.ThumbnailB64)
	}
}

func TestItemList_ValueScan(t *testing.T) {
	list := ItemList{{Title: "x", Downloaded: true, Duration: 30}}

	v, err := list.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var back ItemList
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(back) != 1 || back[0].Title != "x" || !back[0].Downloaded {
		t.Errorf("Roundtrip mismatch: %+v", back)
	}

	var empty ItemList
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if empty != nil {
		t.Errorf("Expected nil list after scanning nil, got %+v", empty)
	}

	ev, err := ItemList(nil).Value()
	if err != nil {
		t.Fatalf("Value on empty list failed: %v", err)
	}
	if ev != "[]" {
		t.Errorf("Expected empty list to serialize as [], got %v", ev)
	}
}
