package dto

import "github.com/cesargomez89/downpour/internal/constants"

type SettingsRequest struct {
	OutputFormat    *string `json:"output_format"`
	PlaylistFolders *bool   `json:"playlist_folders"`
}

func (r *SettingsRequest) Validate() []ValidationError {
	var errs []ValidationError
	if r.OutputFormat != nil {
		switch *r.OutputFormat {
		case constants.FormatMP3, constants.FormatM4A, constants.FormatFLAC, constants.FormatMP4:
		default:
			errs = append(errs, ValidationError{Field: "output_format", Message: "unsupported format"})
		}
	}
	return errs
}

type SettingsResponse struct {
	OutputFormat    string `json:"output_format"`
	PlaylistFolders bool   `json:"playlist_folders"`
}

type StatsResponse struct {
	Active      int            `json:"active"`
	Queued      int            `json:"queued"`
	Downloading int            `json:"downloading"`
	Failed      int            `json:"failed"`
	HistorySize int            `json:"history_size"`
	ByStatus    map[string]int `json:"by_status"`
}
