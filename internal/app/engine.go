// Package app merges the live task store and the persisted history store into
// one consistent view and applies deferred mutations against both.
//
// The single rule that keeps this deadlock-free: the history lock is never
// acquired while the tasks lock is held. Every path that needs both stores
// talks to history first and has fully released it before touching tasks. The
// engine only ever reaches either store through its self-locking methods, so
// no call site here can hold both locks at once.
package app

import (
	"sync"
	"time"

	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/logger"
)

// TaskStore is the live, in-flight side. *queue.Store satisfies it. Every
// method acquires and releases the tasks lock internally.
type TaskStore interface {
	Add(t *domain.DownloadTask) uint64
	AddIfNoActive(t *domain.DownloadTask) (uint64, bool)
	RemoveByID(id uint64) bool
	Get(id uint64) (domain.DownloadTask, bool)
	Mutate(id uint64, fn func(*domain.DownloadTask)) bool
	Snapshot() []domain.DownloadTask
}

// HistoryStore is the persisted side. *history.Store satisfies it. Every
// method acquires and releases the history lock internally; Persist does its
// disk write after releasing.
type HistoryStore interface {
	GetAll() []domain.HistoryRecord
	Append(rec domain.HistoryRecord)
	DeleteByID(id string) bool
	ReplaceAll(records []domain.HistoryRecord)
	ReplaceKnown(records []domain.HistoryRecord, seen map[string]bool)
	Persist() error
}

// PathChecker answers file-existence questions for playlist items.
// *storage.Resolver satisfies it.
type PathChecker interface {
	MissingItems(t *domain.DownloadTask) []int
	MissingFileCount(t *domain.DownloadTask) int
}

// Engine is the reconciliation facade: snapshots out, deferred mutations in.
type Engine struct {
	Tasks   TaskStore
	History HistoryStore
	Paths   PathChecker
	Log     *logger.Logger

	mu      sync.Mutex // guards pending only, never held around store calls
	pending []mutation

	rewriteMu sync.Mutex // one history rewrite at a time
	bg        sync.WaitGroup
}

func NewEngine(tasks TaskStore, hist HistoryStore, paths PathChecker, log *logger.Logger) *Engine {
	return &Engine{
		Tasks:   tasks,
		History: hist,
		Paths:   paths,
		Log:     log.WithComponent("engine"),
	}
}

// Enqueue creates a queued task for a URL and returns its handle. If an
// active task already tracks the same normalized URL, that task's handle is
// returned instead of queueing a duplicate.
func (e *Engine) Enqueue(url, platform string) uint64 {
	id, added := e.Tasks.AddIfNoActive(&domain.DownloadTask{
		URL:                 url,
		Status:              domain.StatusQueued,
		Platform:            platform,
		CurrentPlaylistItem: -1,
		CreatedAt:           time.Now(),
	})
	if !added {
		e.Log.Info("Task already active", "task_id", id, "url", url)
		return id
	}
	e.Log.Info("Task enqueued", "task_id", id, "url", url, "platform", platform)
	return id
}

// background runs fn off the critical path. A panic is caught and logged at
// the boundary; it must not take the process down.
func (e *Engine) background(fn func()) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.Log.Error("Background pass panicked", "panic", r)
			}
		}()
		fn()
	}()
}

// Flush waits for background persistence passes kicked off by Apply. Callers
// that need the rewrite to have landed (tests, shutdown) wait here.
func (e *Engine) Flush() {
	e.bg.Wait()
}
