// Package ingest turns local audio files into track entries.
package ingest

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".wav":  true,
}

// Parser extracts track metadata from audio files on a filesystem.
type Parser struct {
	fs afero.Fs
}

// New creates a parser over the given filesystem.
func New(fs afero.Fs) *Parser {
	return &Parser{fs: fs}
}

// Supported reports whether the path carries a supported audio extension.
func Supported(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// ParseFile reads a file's tags into a track entry. Malformed or missing
// metadata is never a blocking error: the entry falls back to a
// filename-derived title and the unknown artist/album placeholders. Duration
// stays 0 until the device learns it during playback; most tag containers do
// not carry it.
func (p *Parser) ParseFile(path string) track.Entry {
	entry := track.Entry{
		Title:  titleFromFilename(path),
		Source: path,
		Local:  track.NewLocalFile(path, nil),
	}

	f, err := p.fs.Open(path)
	if err != nil {
		zlog.Warn().Err(err).Str("path", path).Msg("ingest: cannot open file, using filename metadata")
		entry.Normalize()
		return entry
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		zlog.Warn().Err(err).Str("path", path).Msg("ingest: tag parse failed, using filename metadata")
		entry.Normalize()
		return entry
	}

	if t := strings.TrimSpace(meta.Title()); t != "" {
		entry.Title = t
	}
	entry.Artist = meta.Artist()
	entry.Album = meta.Album()
	entry.TrackNo, _ = meta.Track()
	entry.Year = meta.Year()
	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		entry.CoverDataURL = pictureDataURL(pic)
	}
	entry.Normalize()
	return entry
}

// ParseDir walks a directory and parses every supported audio file, in
// lexical walk order.
func (p *Parser) ParseDir(dir string) []track.Entry {
	var entries []track.Entry
	err := afero.Walk(p.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			zlog.Warn().Err(err).Str("path", path).Msg("ingest: skipping unreadable path")
			return nil
		}
		if info.IsDir() || !Supported(path) {
			return nil
		}
		entries = append(entries, p.ParseFile(path))
		return nil
	})
	if err != nil {
		zlog.Warn().Err(err).Str("dir", dir).Msg("ingest: directory walk failed")
	}
	return entries
}

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func pictureDataURL(pic *tag.Picture) string {
	mime := pic.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(pic.Data)
}
