package httpapp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cesargomez89/downpour/internal/constants"
	"github.com/cesargomez89/downpour/internal/domain"
	"github.com/cesargomez89/downpour/internal/http/dto"
	"github.com/cesargomez89/downpour/internal/store"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/downloads", h.ListDownloads)
		r.Post("/downloads", h.CreateDownload)
		r.Delete("/downloads/{id}", h.DeleteDownload)
		r.Post("/downloads/{id}/cancel", h.CancelDownload)
		r.Post("/downloads/{id}/retry", h.RetryDownload)
		r.Post("/downloads/{id}/retry-missing", h.RetryMissingDownload)

		r.Get("/history", h.ListHistory)
		r.Delete("/history/{id}", h.DeleteHistory)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		r.Get("/stats", h.GetStats)
	})
}

// ListDownloads returns the merged view of live tasks and history, active
// entries first.
func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	entries := h.Engine.Snapshot()
	if len(entries) > constants.SnapshotLimit {
		entries = entries[:constants.SnapshotLimit]
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) CreateDownload(w http.ResponseWriter, r *http.Request) {
	var req dto.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeError(w, http.StatusBadRequest, dto.ToResponse(errs))
		return
	}

	platform := h.Platforms.Detect(req.URL)
	id := h.Engine.Enqueue(req.URL, platform)

	h.writeJSON(w, http.StatusAccepted, dto.EnqueueResponse{
		TaskID: id,
		URL:    req.URL,
		Status: string(domain.StatusQueued),
	})
}

func (h *Handler) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.findEntry(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "download not found")
		return
	}
	if !h.mutate(h.Engine.RequestDelete, entry) {
		h.writeError(w, http.StatusConflict, "another operation is in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CancelDownload(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.findEntry(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "download not found")
		return
	}
	if entry.TaskID == 0 {
		h.writeError(w, http.StatusConflict, "not an active download")
		return
	}
	if !h.mutate(h.Engine.RequestCancel, entry) {
		h.writeError(w, http.StatusConflict, "another operation is in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RetryDownload(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.findEntry(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "download not found")
		return
	}
	if !h.mutate(h.Engine.RequestRetry, entry) {
		h.writeError(w, http.StatusConflict, "another operation is in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RetryMissingDownload(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.findEntry(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "download not found")
		return
	}
	if !entry.IsPlaylist {
		h.writeError(w, http.StatusConflict, "not a playlist")
		return
	}
	if !h.mutate(h.Engine.RequestRetryMissing, entry) {
		h.writeError(w, http.StatusConflict, "another operation is in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	records := h.History.GetAll()
	out := make([]dto.HistoryResponse, 0, len(records))
	for i := range records {
		out = append(out, dto.NewHistoryResponse(&records[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var entry domain.RenderEntry
	found := false
	for _, rec := range h.History.GetAll() {
		if rec.ID == id {
			entry = domain.RenderEntry{HistoryID: rec.ID, URL: rec.URL}
			found = true
			break
		}
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "history record not found")
		return
	}
	if !h.mutate(h.Engine.RequestDelete, entry) {
		h.writeError(w, http.StatusConflict, "another operation is in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.SettingsResponse{
		OutputFormat:    h.Paths.Format(),
		PlaylistFolders: h.Paths.PlaylistFolders(),
	})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeError(w, http.StatusBadRequest, dto.ToResponse(errs))
		return
	}

	if req.OutputFormat != nil {
		if err := h.Settings.Set(store.SettingOutputFormat, *req.OutputFormat); err != nil {
			h.Logger.Error("Failed to save setting", "key", store.SettingOutputFormat, "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		h.Paths.SetFormat(*req.OutputFormat)
	}
	if req.PlaylistFolders != nil {
		if err := h.Settings.Set(store.SettingPlaylistFolders, strconv.FormatBool(*req.PlaylistFolders)); err != nil {
			h.Logger.Error("Failed to save setting", "key", store.SettingPlaylistFolders, "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		h.Paths.SetPlaylistFolders(*req.PlaylistFolders)
	}

	h.GetSettings(w, r)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts := h.Engine.StatusCounts()
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	h.writeJSON(w, http.StatusOK, dto.StatsResponse{
		Active:      counts[domain.StatusQueued] + counts[domain.StatusDownloading],
		Queued:      counts[domain.StatusQueued],
		Downloading: counts[domain.StatusDownloading],
		Failed:      counts[domain.StatusError],
		HistorySize: h.History.Len(),
		ByStatus:    byStatus,
	})
}
