// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Fallback values used when an imported file carries no usable tags.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// Track represents a single playable audio item.
type Track struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Artist       string     `json:"artist"` // never empty, see Entry.Normalize
	Album        string     `json:"album"`  // never empty, see Entry.Normalize
	Duration     float64    `json:"duration"` // seconds; 0 until known
	TrackNo      int        `json:"trackNo,omitempty"`
	Year         int        `json:"year,omitempty"`
	CoverDataURL string     `json:"coverDataUrl,omitempty"`
	Source       string     `json:"source"` // file path, HTTP URL, or vault:// reference
	Local        *LocalFile `json:"-"`      // in-session local handle; never persisted
	ImportedAt   int64      `json:"importedAt"` // epoch millis
}

// Entry carries the attributes of a track before an ID is assigned.
// Produced by ingestion (local parse or remote resolution) and consumed
// by the store.
type Entry struct {
	Title        string
	Artist       string
	Album        string
	Duration     float64
	TrackNo      int
	Year         int
	CoverDataURL string
	Source       string
	Local        *LocalFile
}

// Normalize trims artist/album and substitutes the unknown fallbacks for
// empty values. Every track in the library has passed through this.
func (e *Entry) Normalize() {
	e.Artist = strings.TrimSpace(e.Artist)
	if e.Artist == "" {
		e.Artist = UnknownArtist
	}
	e.Album = strings.TrimSpace(e.Album)
	if e.Album == "" {
		e.Album = UnknownAlbum
	}
}

// HasLocal reports whether the track still owns an unreleased local file.
func (t *Track) HasLocal() bool {
	return t.Local != nil && !t.Local.Released()
}

// QueueItem represents one entry in the play queue. Multiple items may
// reference the same track; each has its own identity.
type QueueItem struct {
	ID      string    `json:"id"`
	TrackID string    `json:"trackId"`
	AddedAt time.Time `json:"addedAt"`
}
