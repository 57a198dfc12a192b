package dto

import "github.com/cesargomez89/downpour/internal/domain"

type DownloadRequest struct {
	URL string `json:"url"`
}

func (r *DownloadRequest) Validate() []ValidationError {
	return validateURL(r.URL)
}

type EnqueueResponse struct {
	TaskID uint64 `json:"task_id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

type HistoryResponse struct {
	ID           string          `json:"id"`
	URL          string          `json:"url"`
	Platform     string          `json:"platform"`
	Status       string          `json:"status"`
	Filename     string          `json:"filename"`
	FilePath     string          `json:"file_path"`
	FileSize     int64           `json:"file_size"`
	IsPlaylist   bool            `json:"is_playlist"`
	PlaylistName string          `json:"playlist_name,omitempty"`
	Items        domain.ItemList `json:"items,omitempty"`
	ThumbnailB64 string          `json:"thumbnail_base64,omitempty"`
	Timestamp    int64           `json:"timestamp"`
}

func NewHistoryResponse(rec *domain.HistoryRecord) HistoryResponse {
	return HistoryResponse{
		ID:           rec.ID,
		URL:          rec.URL,
		Platform:     rec.Platform,
		Status:       string(rec.Status),
		Filename:     rec.Filename,
		FilePath:     rec.FilePath,
		FileSize:     rec.FileSize,
		IsPlaylist:   rec.IsPlaylist,
		PlaylistName: rec.PlaylistName,
		Items:        rec.Items,
		ThumbnailB64: rec.ThumbnailB64,
		Timestamp:    rec.Timestamp,
	}
}
