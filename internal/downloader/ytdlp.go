package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cesargomez89/downpour/internal/constants"
	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/logger"
	"github.com/cesargomez89/downpour/internal/storage"
)

// YTDLP runs the yt-dlp binary. It implements both Prober and Runner.
type YTDLP struct {
	Path  string
	Paths *storage.Resolver
	Log   *logger.Logger
}

func NewYTDLP(path string, paths *storage.Resolver, log *logger.Logger) *YTDLP {
	if path == "" {
		path = constants.DefaultYTDLPPath
	}
	return &YTDLP{Path: path, Paths: paths, Log: log.WithComponent("ytdlp")}
}

const probeSep = ""

// Probe resolves title, thumbnail and playlist shape without downloading.
// Playlists print one line per entry under --flat-playlist; a single video
// prints exactly one line with an empty playlist title.
func (y *YTDLP) Probe(ctx context.Context, url string) (*Info, error) {
	args := []string{
		"--no-warnings",
		"--flat-playlist",
		"--print", "%(title)s" + probeSep + "%(thumbnail)s" + probeSep + "%(playlist_title)s",
		url,
	}
	out, err := exec.CommandContext(ctx, y.Path, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, commandError(err))
	}

	info := &Info{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.SplitN(line, probeSep, 3)
		if len(parts) != 3 {
			continue
		}
		title, thumb, playlist := cleanField(parts[0]), cleanField(parts[1]), cleanField(parts[2])
		if info.Title == "" {
			info.Title = title
			info.ThumbnailURL = thumb
		}
		if playlist != "" {
			info.PlaylistName = playlist
			info.ItemTitles = append(info.ItemTitles, title)
		}
	}
	if info.Title == "" {
		return nil, fmt.Errorf("probe %s: no metadata returned", url)
	}
	return info, nil
}

// cleanField turns yt-dlp's "NA" placeholder into an empty string.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" || s == "None" {
		return ""
	}
	return s
}

// Run downloads a task, streaming progress to events. The returned error is
// ctx.Err() when the context was cancelled mid-download.
func (y *YTDLP) Run(ctx context.Context, task domain.DownloadTask, events Events) (*Result, error) {
	if err := storage.EnsureDir(y.Paths.ItemDir(&task)); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	args := y.buildArgs(&task)
	y.Log.Debug("starting yt-dlp", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, y.Path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start yt-dlp: %w", err)
	}

	res := &Result{}
	currentItem, lastDest := scanOutput(&task, events, stdout, res)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		msg := lastLine(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		return nil, errors.New(msg)
	}
	if currentItem >= 0 && lastDest != "" {
		events.OnItemDone(currentItem, lastDest, fileSize(lastDest))
	}
	res.FilePath = lastDest
	res.FileSize = fileSize(res.FilePath)
	return res, nil
}

func (y *YTDLP) buildArgs(t *domain.DownloadTask) []string {
	args := []string{
		"--newline",
		"--no-warnings",
		"-o", y.Paths.OutputTemplate(t),
	}
	format := y.Paths.Format()
	switch format {
	case constants.FormatMP4:
		args = append(args, "-f", "mp4")
	default:
		args = append(args, "-x", "--audio-format", format)
	}
	if t.IsPlaylist {
		args = append(args, "--yes-playlist")
		if len(t.RetryItems) > 0 {
			args = append(args, "--playlist-items", itemSpec(t.RetryItems))
		}
	} else {
		args = append(args, "--no-playlist")
	}
	return append(args, t.URL)
}

// scanOutput consumes the downloader's stdout line stream, forwarding
// progress and item transitions. Item indices from "Downloading item k of n"
// are 1-based on the wire and count within the --playlist-items selection. A
// Destination line precedes the actual download, so an item counts as done
// only when the next item starts; the caller fires the final OnItemDone after
// a clean exit.
func scanOutput(task *domain.DownloadTask, events Events, r io.Reader, res *Result) (currentItem int, lastDest string) {
	currentItem = -1
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if p, ok := parseProgress(line); ok {
			events.OnProgress(p)
		}
		if idx, _, ok := parsePlaylistItem(line); ok {
			if currentItem >= 0 && lastDest != "" {
				events.OnItemDone(currentItem, lastDest, fileSize(lastDest))
			}
			currentItem = retryIndex(task.RetryItems, idx)
			lastDest = ""
			title := ""
			if currentItem >= 0 && currentItem < len(task.PlaylistItems) {
				title = task.PlaylistItems[currentItem].Title
			}
			events.OnItemStart(currentItem, title)
		}
		if path, ok := parseDestination(line); ok {
			// Later destinations supersede: post-processing rewrites the
			// extension after the raw download.
			lastDest = path
			events.OnDestination(path)
		}
		if isAlreadyDownloaded(line) {
			res.AlreadyExists = true
			if path, ok := parseAlreadyDownloadedPath(line); ok {
				lastDest = path
			}
		}
	}
	return currentItem, lastDest
}

// retryIndex maps a 1-based wire index back to the task's zero-based item
// index. Under --playlist-items yt-dlp counts within the selection, so "item
// k of n" is the k-th selected item, not the k-th playlist entry.
func retryIndex(retry []int, wire int) int {
	if len(retry) == 0 {
		return wire - 1
	}
	if wire >= 1 && wire <= len(retry) {
		return retry[wire-1]
	}
	return wire - 1
}

// itemSpec renders zero-based retry indices as yt-dlp's 1-based item list.
func itemSpec(items []int) string {
	parts := make([]string, 0, len(items))
	for _, i := range items {
		parts = append(parts, strconv.Itoa(i+1))
	}
	return strings.Join(parts, ",")
}

var (
	progressRe     = regexp.MustCompile(`\[download\]\s+([\d.]+)%`)
	playlistItemRe = regexp.MustCompile(`\[download\] Downloading item (\d+) of (\d+)`)
	destinationRe  = regexp.MustCompile(`\[(?:download|ExtractAudio|Merger)\] (?:Destination: |Merging formats into ")(.+?)"?$`)
	alreadyRe      = regexp.MustCompile(`\[download\] (.+) has already been downloaded`)
)

func parseProgress(line string) (float64, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct / 100, true
}

func parsePlaylistItem(line string) (index, total int, ok bool) {
	m := playlistItemRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	index, _ = strconv.Atoi(m[1])
	total, _ = strconv.Atoi(m[2])
	return index, total, true
}

func parseDestination(line string) (string, bool) {
	m := destinationRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isAlreadyDownloaded(line string) bool {
	return alreadyRe.MatchString(line)
}

func parseAlreadyDownloadedPath(line string) (string, bool) {
	m := alreadyRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// commandError unwraps exec.ExitError stderr into something readable.
func commandError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return errors.New(lastLine(string(exitErr.Stderr)))
	}
	return err
}

// Filename returns the base name of a downloaded file, for display.
func Filename(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
