// Package album provides the Album aggregate.
//
// Albums are implicit: they are never authored directly but derived from the
// (artist, title) pair of their tracks. The normalized pair is the album's
// identity.
package album

import (
	"sort"
	"strings"

	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// Key builds the album identity from an artist and album title. The pair is
// lowercase-normalized so tag casing differences collapse into one album.
func Key(artist, title string) string {
	return strings.ToLower(artist) + "::" + strings.ToLower(title)
}

// Album groups the tracks sharing one normalized (artist, title) key.
type Album struct {
	ID       string   `json:"id"` // the normalized key
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Year     int      `json:"year,omitempty"`
	CoverURL string   `json:"coverDataUrl,omitempty"`
	TrackIDs []string `json:"tracks"` // ordered, see Sort
}

// New creates an album seeded with its first track.
func New(t *track.Track) *Album {
	return &Album{
		ID:       Key(t.Artist, t.Album),
		Title:    t.Album,
		Artist:   t.Artist,
		Year:     t.Year,
		CoverURL: t.CoverDataURL,
		TrackIDs: []string{t.ID},
	}
}

// Add appends a track id if not already present and backfills a missing
// cover or year from the track.
func (a *Album) Add(t *track.Track) {
	if !a.Contains(t.ID) {
		a.TrackIDs = append(a.TrackIDs, t.ID)
	}
	if a.CoverURL == "" && t.CoverDataURL != "" {
		a.CoverURL = t.CoverDataURL
	}
	if a.Year == 0 && t.Year != 0 {
		a.Year = t.Year
	}
}

// Contains reports whether the album holds the given track id.
func (a *Album) Contains(trackID string) bool {
	for _, id := range a.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}

// Remove drops a track id from the album's list.
func (a *Album) Remove(trackID string) {
	kept := a.TrackIDs[:0]
	for _, id := range a.TrackIDs {
		if id != trackID {
			kept = append(kept, id)
		}
	}
	a.TrackIDs = kept
}

// Empty reports whether the album has no tracks left.
func (a *Album) Empty() bool {
	return len(a.TrackIDs) == 0
}

// IndexOf returns the position of a track id within the album, or -1.
func (a *Album) IndexOf(trackID string) int {
	for i, id := range a.TrackIDs {
		if id == trackID {
			return i
		}
	}
	return -1
}

// Sort orders the album's tracks: by track number when both tracks carry
// one, otherwise lexicographically by title. Called after every insertion.
func (a *Album) Sort(tracks map[string]*track.Track) {
	sort.SliceStable(a.TrackIDs, func(i, j int) bool {
		ta, tb := tracks[a.TrackIDs[i]], tracks[a.TrackIDs[j]]
		if ta == nil || tb == nil {
			return false
		}
		if ta.TrackNo != 0 && tb.TrackNo != 0 {
			return ta.TrackNo < tb.TrackNo
		}
		return ta.Title < tb.Title
	})
}
