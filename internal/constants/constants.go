// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "downpour.db"
	DefaultFormat       = "mp3"
	DefaultYTDLPPath    = "yt-dlp"
	DefaultConcurrency  = 2
	DefaultPollInterval = 2 * time.Second
	CancelPollInterval  = 500 * time.Millisecond
	DefaultHTTPTimeout  = 5 * time.Minute
	ImageHTTPTimeout    = 30 * time.Second
	DefaultRetryCount   = 3
	DefaultRetryBase    = 1 * time.Second
	SnapshotLimit       = 500
)

// Output formats accepted by the external downloader
const (
	FormatMP3  = "mp3"
	FormatM4A  = "m4a"
	FormatFLAC = "flac"
	FormatMP4  = "mp4"
)

// Platforms
const (
	PlatformYouTube    = "youtube"
	PlatformSoundCloud = "soundcloud"
	PlatformVimeo      = "vimeo"
	PlatformGeneric    = "generic"
)

// MIME Types
const (
	MimeTypeFLAC = "audio/flac"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeMP4  = "audio/mp4"
	MimeTypeJPEG = "image/jpeg"
)

// Database
const (
	HistoryTable  = "history"
	SettingsTable = "settings"
)
