// Package queue owns the in-flight download tasks. All task state lives behind
// a single mutex; callers get deep copies out and mutate through closures run
// under the lock. Tasks are addressed by stable handles issued at Add time,
// never by pointer and never by index.
package queue

import (
	"sync"

	"github.com/cesargomez89/downpour/internal/domain"
)

// Store is the live task store. It never touches the history store or its
// lock, and no operation performs I/O while the lock is held.
type Store struct {
	mu     sync.Mutex
	tasks  []*domain.DownloadTask
	nextID uint64
}

func NewStore() *Store {
	return &Store{}
}

// Add inserts a task and returns its handle. The store takes ownership of the
// task; the caller must not retain the pointer.
func (s *Store) Add(t *domain.DownloadTask) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t.ID = s.nextID
	if t.CurrentPlaylistItem == 0 && len(t.PlaylistItems) == 0 {
		t.CurrentPlaylistItem = -1
	}
	s.tasks = append(s.tasks, t)
	return t.ID
}

// AddIfNoActive inserts the task unless an active task already tracks the
// same normalized URL, in which case the existing handle is returned. Scan
// and insert share one critical section, so two concurrent enqueues of one
// URL cannot both land.
func (s *Store) AddIfNoActive(t *domain.DownloadTask) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeURL(t.URL)
	for _, cur := range s.tasks {
		if cur.Status.IsActive() && domain.NormalizeURL(cur.URL) == key {
			return cur.ID, false
		}
	}

	s.nextID++
	t.ID = s.nextID
	if t.CurrentPlaylistItem == 0 && len(t.PlaylistItems) == 0 {
		t.CurrentPlaylistItem = -1
	}
	s.tasks = append(s.tasks, t)
	return t.ID, true
}

// RemoveByID erases the task with the given handle. Removing an unknown
// handle is a no-op returning false; handles are never reused, so a stale
// handle can only miss, not hit the wrong task.
func (s *Store) RemoveByID(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a deep copy of the task with the given handle.
func (s *Store) Get(id uint64) (domain.DownloadTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.DownloadTask{}, false
}

// Mutate runs fn on the task with the given handle while holding the lock.
// fn must not block, perform I/O, or call back into any store.
func (s *Store) Mutate(id uint64, fn func(*domain.DownloadTask)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == id {
			fn(t)
			return true
		}
	}
	return false
}

// ForEach visits every task under the lock, in insertion order. The visitor
// must not retain pointers past the call.
func (s *Store) ForEach(fn func(*domain.DownloadTask)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		fn(t)
	}
}

// Snapshot returns deep copies of all tasks in insertion order. The lock is
// held only for the duration of one linear copy.
func (s *Store) Snapshot() []domain.DownloadTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DownloadTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// ClaimNext finds the oldest queued task, marks it downloading, and returns a
// copy. Claim and transition happen in one critical section so two workers
// can never claim the same task.
func (s *Store) ClaimNext() (domain.DownloadTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.Status == domain.StatusQueued {
			t.Status = domain.StatusDownloading
			return t.Clone(), true
		}
	}
	return domain.DownloadTask{}, false
}

// ActiveCount reports how many tasks are queued or downloading.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if t.Status.IsActive() {
			n++
		}
	}
	return n
}

// Len returns the number of live tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
