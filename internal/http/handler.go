package httpapp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cesargomez89/downpour/internal/app"
	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/downloader"
	"github.com/cesargomez89/downpour/internal/history"
	"github.com/cesargomez89/downpour/internal/logger"
	"github.com/cesargomez89/downpour/internal/queue"
	"github.com/cesargomez89/downpour/internal/storage"
	"github.com/cesargomez89/downpour/internal/store"
)

type Handler struct {
	Engine    *app.Engine
	History   *history.Store
	Settings  *store.SettingsRepo
	Platforms *downloader.Registry
	Paths     *storage.Resolver
	Logger    *logger.Logger

	// guard keeps overlapping destructive requests from interleaving their
	// mutation batches. Held only for the request-then-apply window.
	guard queue.DragGuard
}

func NewHandler(engine *app.Engine, hist *history.Store, settings *store.SettingsRepo, platforms *downloader.Registry, paths *storage.Resolver, log *logger.Logger) *Handler {
	return &Handler{
		Engine:    engine,
		History:   hist,
		Settings:  settings,
		Platforms: platforms,
		Paths:     paths,
		Logger:    log.WithComponent("http"),
	}
}

// mutate records a mutation against an entry and applies the batch, under the
// single-slot guard. Returns false when another mutation is mid-flight.
func (h *Handler) mutate(request func(domain.RenderEntry), entry domain.RenderEntry) bool {
	return h.guard.With(func() {
		request(entry)
		h.Engine.Apply()
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// findEntry resolves a path id against the merged snapshot. Numeric ids are
// task handles, everything else is a history record id.
func (h *Handler) findEntry(id string) (domain.RenderEntry, bool) {
	taskID, numeric := parseTaskID(id)
	for _, entry := range h.Engine.Snapshot() {
		if numeric && entry.TaskID == taskID {
			return entry, true
		}
		if !numeric && entry.HistoryID == id {
			return entry, true
		}
	}
	return domain.RenderEntry{}, false
}

func parseTaskID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	return n, err == nil
}
