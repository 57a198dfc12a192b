// Package tagging writes metadata into finished audio files. Failures here
// are reported to the caller but are never allowed to fail a download.
package tagging

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Meta is the metadata written into a file.
type Meta struct {
	Title  string
	Artist string
	Album  string
	URL    string
}

// TagFile writes metadata tags to the audio file at filePath. Cover art is
// optional.
func TagFile(filePath string, meta Meta, artData []byte) error {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".mp3":
		return tagMP3(filePath, meta, artData)
	case ".flac":
		return tagFLAC(filePath, meta, artData)
	case ".m4a", ".mp4":
		// Atom manipulation not implemented; players fall back to filenames.
		return nil
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

// detectMIME sniffs the image type so PNG covers aren't labelled image/jpeg.
func detectMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}

func tagMP3(filePath string, meta Meta, artData []byte) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)

	if meta.Title != "" {
		tag.SetTitle(meta.Title)
	}
	if meta.Artist != "" {
		tag.SetArtist(meta.Artist)
	}
	if meta.Album != "" {
		tag.SetAlbum(meta.Album)
	}
	if meta.URL != "" {
		tag.AddTextFrame(tag.CommonID("WWWAudioSource"), tag.DefaultEncoding(), meta.URL)
	}
	if len(artData) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectMIME(artData),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     artData,
		})
	}

	return tag.Save()
}

// tagFLAC replaces the Vorbis comment block and adds a picture block if art
// is given. Existing comment and picture blocks are dropped so retagging is
// idempotent.
func tagFLAC(filePath string, meta Meta, artData []byte) error {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	kept := f.Meta[:0]
	for _, block := range f.Meta {
		if block.Type == goflac.VorbisComment || block.Type == goflac.Picture {
			continue
		}
		kept = append(kept, block)
	}
	f.Meta = kept

	cmt := flacvorbis.New()
	addField := func(name, value string) error {
		if value == "" {
			return nil
		}
		return cmt.Add(name, value)
	}
	if err := addField(flacvorbis.FIELD_TITLE, meta.Title); err != nil {
		return fmt.Errorf("failed to add vorbis field: %w", err)
	}
	if err := addField(flacvorbis.FIELD_ARTIST, meta.Artist); err != nil {
		return fmt.Errorf("failed to add vorbis field: %w", err)
	}
	if err := addField(flacvorbis.FIELD_ALBUM, meta.Album); err != nil {
		return fmt.Errorf("failed to add vorbis field: %w", err)
	}
	cmtBlock := cmt.Marshal()
	f.Meta = append(f.Meta, &cmtBlock)

	if len(artData) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", artData, detectMIME(artData))
		if err != nil {
			return fmt.Errorf("failed to build picture block: %w", err)
		}
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	return f.Save(filePath)
}
