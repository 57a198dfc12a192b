// Package storage resolves where downloaded files are expected to live. It is
// a pure function of (base directory, item title or rename, format); the only
// I/O is the final existence check, which always happens outside any store
// lock.
package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cesargomez89/downpour/internal/domain"
)

// Resolver resolves expected file paths for tasks and playlist items. Format
// and playlist-folder mode are settings the HTTP layer changes at runtime
// while workers read them, so both sit behind the mutex.
type Resolver struct {
	DownloadsDir string

	mu              sync.RWMutex
	format          string
	playlistFolders bool // save playlists into a subfolder named after the playlist
}

func NewResolver(downloadsDir, format string, playlistFolders bool) *Resolver {
	return &Resolver{
		DownloadsDir:    downloadsDir,
		format:          format,
		playlistFolders: playlistFolders,
	}
}

// Format returns the current output format.
func (r *Resolver) Format() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.format
}

func (r *Resolver) SetFormat(format string) {
	r.mu.Lock()
	r.format = format
	r.mu.Unlock()
}

// PlaylistFolders reports whether playlists land in their own subfolder.
func (r *Resolver) PlaylistFolders() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playlistFolders
}

func (r *Resolver) SetPlaylistFolders(on bool) {
	r.mu.Lock()
	r.playlistFolders = on
	r.mu.Unlock()
}

// Sanitize strips characters that are invalid in filenames and trims trailing
// dots and spaces.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune("<>:\"/\\|?*", r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ItemBaseName returns the filename (without extension) a playlist item is
// expected to use: the user's rename override if present, otherwise the
// sanitized title.
func (r *Resolver) ItemBaseName(t *domain.DownloadTask, i int) string {
	if name, ok := t.ItemRenames[i]; ok && name != "" {
		return Sanitize(name)
	}
	if i >= 0 && i < len(t.PlaylistItems) {
		return Sanitize(t.PlaylistItems[i].Title)
	}
	return ""
}

// ItemDir returns the directory a playlist item lands in.
func (r *Resolver) ItemDir(t *domain.DownloadTask) string {
	if r.PlaylistFolders() && t.IsPlaylist && t.PlaylistName != "" {
		return filepath.Join(r.DownloadsDir, Sanitize(t.PlaylistName))
	}
	return r.DownloadsDir
}

// CandidatePaths returns the places a playlist item's file may be, most
// authoritative first: the item's own recorded path, the incremental
// index->path map (either may be fresher, depending on which write finished
// last), then the constructed path from the sanitized name and format.
func (r *Resolver) CandidatePaths(t *domain.DownloadTask, i int) []string {
	var out []string
	if i >= 0 && i < len(t.PlaylistItems) && t.PlaylistItems[i].FilePath != "" {
		out = append(out, t.PlaylistItems[i].FilePath)
	}
	if p, ok := t.ItemFilePaths[i]; ok && p != "" {
		out = append(out, p)
	}
	if name := r.ItemBaseName(t, i); name != "" {
		out = append(out, filepath.Join(r.ItemDir(t), name+"."+r.Format()))
	}
	return out
}

// ItemFileExists reports whether any candidate path for item i exists on disk.
func (r *Resolver) ItemFileExists(t *domain.DownloadTask, i int) bool {
	for _, p := range r.CandidatePaths(t, i) {
		if FileExists(p) {
			return true
		}
	}
	return false
}

// MissingItems returns the playlist indices that still need downloading: not
// marked downloaded and without a file on disk.
func (r *Resolver) MissingItems(t *domain.DownloadTask) []int {
	var out []int
	for i := range t.PlaylistItems {
		if t.PlaylistItems[i].Downloaded {
			continue
		}
		if r.ItemFileExists(t, i) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// MissingFileCount counts items believed downloaded whose file has since
// disappeared. Detected lazily, surfaced as a count, never fatal.
func (r *Resolver) MissingFileCount(t *domain.DownloadTask) int {
	n := 0
	for i := range t.PlaylistItems {
		if t.PlaylistItems[i].Downloaded && !r.ItemFileExists(t, i) {
			n++
		}
	}
	return n
}

// OutputTemplate builds the external downloader's output template for a task.
func (r *Resolver) OutputTemplate(t *domain.DownloadTask) string {
	return filepath.Join(r.ItemDir(t), "%(title)s.%(ext)s")
}

// EnsureDir creates the directory if needed.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
