// Package downloader drives the external download process. Workers claim
// queued tasks, shell out to yt-dlp, and translate its output into task-store
// mutations. Cancellation is cooperative: the worker polls its task between
// checkpoints and tears the process down when the task is cancelled or gone.
package downloader

import (
	"context"

	"github.com/cesargomez89/downpour/internal/domain"
)

// Info is the metadata probe result for a URL, resolved before downloading.
type Info struct {
	Title        string
	ThumbnailURL string
	PlaylistName string
	ItemTitles   []string // empty for single videos
}

// Events receives callbacks from a Runner while a download is in flight.
// Implementations translate them into store mutations; callbacks must be
// fast and must not call back into the runner.
type Events interface {
	OnProgress(progress float64)
	OnItemStart(index int, title string)
	OnItemDone(index int, path string, size int64)
	OnDestination(path string)
}

// Result is the outcome of a finished run.
type Result struct {
	FilePath      string
	FileSize      int64
	AlreadyExists bool
}

// Prober resolves metadata for a URL without downloading.
type Prober interface {
	Probe(ctx context.Context, url string) (*Info, error)
}

// Runner executes the actual download for a task copy. The runner never
// touches any store; all state flows back through Events and the Result.
type Runner interface {
	Run(ctx context.Context, task domain.DownloadTask, events Events) (*Result, error)
}
