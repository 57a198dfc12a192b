package app

import (
	"reflect"
	"time"

	"testing"

	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/history"
	"github.com/cesargomez89/downpour/internal/logger"
	"github.com/cesargomez89/downpour/internal/queue"
)

func newTestEngine() (*Engine, *queue.Store, *history.Store) {
	tasks := queue.NewStore()
	hist := history.NewStore(nil, logger.Default())
	e := NewEngine(tasks, hist, nil, logger.Default())
	return e, tasks, hist
}

func addTask(tasks *queue.Store, t domain.DownloadTask) uint64 {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Unix(1700000000, 0)
	}
	return tasks.Add(&t)
}

func TestSnapshot_LiveTaskWinsWhileActive(t *testing.T) {
	e, tasks, hist := newTestEngine()

	hist.Append(domain.HistoryRecord{
		ID: "h-old", URL: "https://example.com/a", Status: domain.StatusCompleted,
		Timestamp: 100, ThumbnailB64: "thumb",
	})
	addTask(tasks, domain.DownloadTask{
		URL: "https://example.com/a", Status: domain.StatusDownloading, Progress: 0.4,
	})

	snap := e.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected exactly one entry for the shared URL, got %d", len(snap))
	}
	entry := snap[0]
	if entry.Status != domain.StatusDownloading {
		t.Errorf("Expected live status downloading, got %s", entry.Status)
	}
	if entry.Progress != 0.4 {
		t.Errorf("Expected live progress 0.4, got %f", entry.Progress)
	}
	// The stable id and thumbnail come from the record.
	if entry.HistoryID != "h-old" {
		t.Errorf("Expected recovered history id h-old, got %q", entry.HistoryID)
	}
	if entry.ThumbnailB64 != "thumb" {
		t.Errorf("Expected recovered thumbnail, got %q", entry.ThumbnailB64)
	}
}

func TestSnapshot_TerminalTaskYieldsToHistory(t *testing.T) {
	e, tasks, hist := newTestEngine()

	addTask(tasks, domain.DownloadTask{
		URL: "https://example.com/t2", Status: domain.StatusCompleted,
	})
	hist.Append(domain.HistoryRecord{
		ID: "h1", URL: "https://example.com/t2", Status: domain.StatusCompleted, Timestamp: 200,
	})

	snap := e.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected one surviving entry, got %d", len(snap))
	}
	if snap[0].HistoryID != "h1" || snap[0].TaskID != 0 {
		t.Errorf("Expected the history record to be the sole survivor, got %+v", snap[0])
	}
}

func TestSnapshot_DuplicateSubmissionFirstWins(t *testing.T) {
	e, tasks, _ := newTestEngine()

	first := addTask(tasks, domain.DownloadTask{URL: "https://example.com/dup", Status: domain.StatusDownloading})
	addTask(tasks, domain.DownloadTask{URL: "https://EXAMPLE.com/dup", Status: domain.StatusQueued})

	snap := e.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected duplicates collapsed to one entry, got %d", len(snap))
	}
	if snap[0].TaskID != first {
		t.Errorf("Expected first occurrence to win, got task %d", snap[0].TaskID)
	}
}

func TestSnapshot_UnknownStatusDropped(t *testing.T) {
	e, tasks, _ := newTestEngine()

	id := addTask(tasks, domain.DownloadTask{URL: "https://example.com/x", Status: domain.StatusQueued})
	tasks.Mutate(id, func(task *domain.DownloadTask) {
		task.Status = domain.Status("exploded")
	})

	if snap := e.Snapshot(); len(snap) != 0 {
		t.Errorf("Expected unknown-status task to be dropped, got %d entries", len(snap))
	}
}

func TestSnapshot_Ordering(t *testing.T) {
	e, tasks, hist := newTestEngine()

	hist.Append(domain.HistoryRecord{ID: "h-new", URL: "https://example.com/n", Status: domain.StatusCompleted, Timestamp: 300})
	hist.Append(domain.HistoryRecord{ID: "h-old", URL: "https://example.com/o", Status: domain.StatusCompleted, Timestamp: 100})
	hist.Append(domain.HistoryRecord{ID: "h-tie-b", URL: "https://example.com/tie-b", Status: domain.StatusCompleted, Timestamp: 200})
	hist.Append(domain.HistoryRecord{ID: "h-tie-a", URL: "https://example.com/tie-a", Status: domain.StatusCompleted, Timestamp: 200})

	// Active tasks sort before all terminal work regardless of timestamp.
	tasks.Add(&domain.DownloadTask{URL: "https://example.com/q", Status: domain.StatusQueued, CreatedAt: time.Unix(50, 0)})
	tasks.Add(&domain.DownloadTask{URL: "https://example.com/d", Status: domain.StatusDownloading, CreatedAt: time.Unix(40, 0)})
	errTask := &domain.DownloadTask{URL: "https://example.com/e", Status: domain.StatusDownloading, CreatedAt: time.Unix(400, 0)}
	id := tasks.Add(errTask)
	tasks.Mutate(id, func(task *domain.DownloadTask) {
		task.Status = domain.StatusError
		task.ErrorMessage = "boom"
	})

	snap := e.Snapshot()
	var urls []string
	for _, entry := range snap {
		urls = append(urls, entry.URL)
	}

	want := []string{
		"https://example.com/q",     // active, ts 50
		"https://example.com/d",     // active, ts 40
		"https://example.com/e",     // terminal, ts 400
		"https://example.com/n",     // ts 300
		"https://example.com/tie-a", // ts 200, url tiebreak
		"https://example.com/tie-b",
		"https://example.com/o", // ts 100
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Order mismatch.\n got: %v\nwant: %v", urls, want)
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	e, tasks, hist := newTestEngine()

	for i, url := range []string{"https://a", "https://b", "https://c"} {
		hist.Append(domain.HistoryRecord{ID: url, URL: url, Status: domain.StatusCompleted, Timestamp: int64(100 + i)})
	}
	addTask(tasks, domain.DownloadTask{URL: "https://live", Status: domain.StatusDownloading, Progress: 0.25})

	first := e.Snapshot()
	second := e.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Error("Two reconciliations over identical stores must produce identical output")
	}
}

func TestSnapshot_NoDuplicateURLs(t *testing.T) {
	e, tasks, hist := newTestEngine()

	// A messy mix: active, terminal, recorded, duplicated.
	hist.Append(domain.HistoryRecord{ID: "h1", URL: "https://u1", Status: domain.StatusCompleted, Timestamp: 10})
	hist.Append(domain.HistoryRecord{ID: "h2", URL: "https://u2", Status: domain.StatusCompleted, Timestamp: 20})
	addTask(tasks, domain.DownloadTask{URL: "https://u1", Status: domain.StatusDownloading})
	addTask(tasks, domain.DownloadTask{URL: "https://u2", Status: domain.StatusCompleted})
	addTask(tasks, domain.DownloadTask{URL: "https://u3", Status: domain.StatusQueued})
	addTask(tasks, domain.DownloadTask{URL: "https://u3", Status: domain.StatusQueued})

	counts := make(map[string]int)
	for _, entry := range e.Snapshot() {
		counts[domain.NormalizeURL(entry.URL)]++
	}
	for url, n := range counts {
		if n > 1 {
			t.Errorf("URL %s appears %d times in one snapshot", url, n)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	e, tasks, hist := newTestEngine()

	addTask(tasks, domain.DownloadTask{URL: "https://u1", Status: domain.StatusQueued})
	addTask(tasks, domain.DownloadTask{URL: "https://u2", Status: domain.StatusDownloading})
	hist.Append(domain.HistoryRecord{ID: "h1", URL: "https://u3", Status: domain.StatusCompleted, Timestamp: 1})

	counts := e.StatusCounts()
	if counts[domain.StatusQueued] != 1 || counts[domain.StatusDownloading] != 1 || counts[domain.StatusCompleted] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
