package store

import (
	"sort"
	"strings"

	"github.com/thedrop-audio/thedrop/internal/domain/album"
	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// Player returns a copy of the transport state.
func (s *Store) Player() PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player
}

// UI returns a copy of the UI preferences.
func (s *Store) UI() UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ui
}

// Track returns the track with the given id, if present.
func (s *Store) Track(id string) (*track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tracks[id]
	return t, ok
}

// CurrentTrack returns the loaded track. The second result is false when
// nothing is loaded or the loaded id dangles.
func (s *Store) CurrentTrack() (*track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player.CurrentTrackID == "" {
		return nil, false
	}
	t, ok := s.tracks[s.player.CurrentTrackID]
	return t, ok
}

// TrackCount returns the number of tracks in the library.
func (s *Store) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Album returns the album with the given key, if present.
func (s *Store) Album(id string) (*album.Album, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.albums[id]
	return a, ok
}

// Albums returns the albums matching the UI filter, ordered per the UI sort
// preference. The "added" order uses the earliest import time of each
// album's tracks.
func (s *Store) Albums() []*album.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := strings.ToLower(strings.TrimSpace(s.ui.Filter))
	result := make([]*album.Album, 0, len(s.albums))
	for _, a := range s.albums {
		if filter != "" &&
			!strings.Contains(strings.ToLower(a.Title), filter) &&
			!strings.Contains(strings.ToLower(a.Artist), filter) {
			continue
		}
		result = append(result, a)
	}

	switch s.ui.SortOrder {
	case SortByTitle:
		sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	case SortByArtist:
		sort.Slice(result, func(i, j int) bool { return result[i].Artist < result[j].Artist })
	case SortByYear:
		sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	default: // SortByAdded
		added := func(a *album.Album) int64 {
			var min int64
			for _, id := range a.TrackIDs {
				if t, ok := s.tracks[id]; ok && (min == 0 || t.ImportedAt < min) {
					min = t.ImportedAt
				}
			}
			return min
		}
		sort.Slice(result, func(i, j int) bool { return added(result[i]) < added(result[j]) })
	}
	return result
}

// QueueItems returns a copy of the queue in play order.
func (s *Store) QueueItems() []track.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]track.QueueItem, len(s.queue))
	copy(out, s.queue)
	return out
}
