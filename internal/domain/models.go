package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusQueued        Status = "queued"
	StatusDownloading   Status = "downloading"
	StatusCompleted     Status = "completed"
	StatusError         Status = "error"
	StatusCancelled     Status = "cancelled"
	StatusAlreadyExists Status = "already_exists"
)

// DownloadTask is a live unit of work. It is owned by the task store and must
// only be read or written while the store's lock is held; callers outside the
// lock work with copies. ID is a stable handle issued by the store at Add time
// and is the only thing safe to carry across a lock boundary.
type DownloadTask struct {
	ID                  uint64
	URL                 string
	Status              Status
	Progress            float64
	Platform            string
	Filename            string
	FilePath            string
	FileSize            int64
	IsPlaylist          bool
	PlaylistName        string
	TotalPlaylistItems  int
	CurrentPlaylistItem int // -1 when no item is active
	CurrentItemTitle    string
	PlaylistItems       []PlaylistItem
	ItemFilePaths       map[int]string // index -> path, filled as items finish
	ItemRenames         map[int]string // user overrides, never cleared
	RetryItems          []int          // indices to resubmit; empty means all
	ErrorMessage        string
	CreatedAt           time.Time
}

// PlaylistItem is one entry of a playlist task. Downloaded is monotonic: once
// true it never goes back to false.
type PlaylistItem struct {
	Title      string `json:"title"`
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
	Downloaded bool   `json:"downloaded"`
	Duration   int    `json:"duration"`
	Bitrate    int    `json:"bitrate"`
	FileSize   int64  `json:"file_size"`
}

// HistoryRecord is a persisted record of a finished job. ID is unique and
// stable across restarts; URL is not unique (a retried URL is re-recorded),
// so deletion always goes by ID.
type HistoryRecord struct {
	ID           string   `json:"id" db:"id"`
	URL          string   `json:"url" db:"url"`
	Platform     string   `json:"platform" db:"platform"`
	Status       Status   `json:"status" db:"status"`
	ThumbnailB64 string   `json:"thumbnail_base64,omitempty" db:"thumbnail_base64"`
	Timestamp    int64    `json:"timestamp" db:"timestamp"`
	Filename     string   `json:"filename" db:"filename"`
	FilePath     string   `json:"file_path" db:"file_path"`
	FileSize     int64    `json:"file_size" db:"file_size"`
	IsPlaylist   bool     `json:"is_playlist" db:"is_playlist"`
	PlaylistName string   `json:"playlist_name" db:"playlist_name"`
	Items        ItemList `json:"items,omitempty" db:"items"`
}

// RenderEntry is one row of the merged task+history view. It carries enough
// denormalized data to render without further locking. TaskID is zero for
// history-only entries; HistoryID is empty for tasks never recorded.
type RenderEntry struct {
	TaskID       uint64         `json:"task_id,omitempty"`
	HistoryID    string         `json:"history_id,omitempty"`
	URL          string         `json:"url"`
	Status       Status         `json:"status"`
	Progress     float64        `json:"progress"`
	Platform     string         `json:"platform"`
	Filename     string         `json:"filename"`
	FilePath     string         `json:"file_path"`
	FileSize     int64          `json:"file_size"`
	IsPlaylist   bool           `json:"is_playlist"`
	PlaylistName string         `json:"playlist_name,omitempty"`
	TotalItems   int            `json:"total_items,omitempty"`
	CurrentItem  int            `json:"current_item"`
	CurrentTitle string         `json:"current_title,omitempty"`
	Items        []PlaylistItem `json:"items,omitempty"`
	ThumbnailB64 string         `json:"thumbnail_base64,omitempty"`
	Timestamp    int64          `json:"timestamp"`
	ErrorMessage string         `json:"error,omitempty"`
	MissingCount int            `json:"missing_count,omitempty"`
}

// NormalizeURL produces the identity key used to match tasks against history
// records: trimmed and lowercased.
func NormalizeURL(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}

// Clone returns a deep copy safe to use outside the task store's lock.
func (t *DownloadTask) Clone() DownloadTask {
	c := *t
	if t.PlaylistItems != nil {
		c.PlaylistItems = make([]PlaylistItem, len(t.PlaylistItems))
		copy(c.PlaylistItems, t.PlaylistItems)
	}
	if t.ItemFilePaths != nil {
		c.ItemFilePaths = make(map[int]string, len(t.ItemFilePaths))
		for k, v := range t.ItemFilePaths {
			c.ItemFilePaths[k] = v
		}
	}
	if t.ItemRenames != nil {
		c.ItemRenames = make(map[int]string, len(t.ItemRenames))
		for k, v := range t.ItemRenames {
			c.ItemRenames[k] = v
		}
	}
	if t.RetryItems != nil {
		c.RetryItems = make([]int, len(t.RetryItems))
		copy(c.RetryItems, t.RetryItems)
	}
	return c
}

// Record builds a history record from a finished task. The caller assigns the
// record ID.
func (t *DownloadTask) Record(id string, thumbnailB64 string, now time.Time) HistoryRecord {
	items := make(ItemList, len(t.PlaylistItems))
	copy(items, t.PlaylistItems)
	return HistoryRecord{
		ID:           id,
		URL:          t.URL,
		Platform:     t.Platform,
		Status:       t.Status,
		ThumbnailB64: thumbnailB64,
		Timestamp:    now.Unix(),
		Filename:     t.Filename,
		FilePath:     t.FilePath,
		FileSize:     t.FileSize,
		IsPlaylist:   t.IsPlaylist,
		PlaylistName: t.PlaylistName,
		Items:        items,
	}
}
