package store

import (
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/thedrop-audio/thedrop/internal/domain/album"
	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// Snapshot is the persisted projection of the store. Local file handles are
// never part of it; the player keeps only what survives a reload (track id,
// volume, rate - playback itself always restarts paused at zero).
type Snapshot struct {
	Tracks map[string]*track.Track `json:"tracks"`
	Albums map[string]*album.Album `json:"albums"`
	Queue  []track.QueueItem       `json:"queue"`
	UI     UIState                 `json:"ui"`
	Player PlayerState             `json:"player"`
}

// Snapshot captures the persistable projection of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := make(map[string]*track.Track, len(s.tracks))
	for id, t := range s.tracks {
		cp := *t
		cp.Local = nil
		tracks[id] = &cp
	}
	albums := make(map[string]*album.Album, len(s.albums))
	for key, a := range s.albums {
		cp := *a
		cp.TrackIDs = append([]string(nil), a.TrackIDs...)
		albums[key] = &cp
	}
	queue := make([]track.QueueItem, len(s.queue))
	copy(queue, s.queue)

	return Snapshot{
		Tracks: tracks,
		Albums: albums,
		Queue:  queue,
		UI:     s.ui,
		Player: PlayerState{
			CurrentTrackID: s.player.CurrentTrackID,
			IsPlaying:      false,
			CurrentTime:    0,
			Volume:         s.player.Volume,
			Rate:           s.player.Rate,
		},
	}
}

// durableSource reports whether a source survives a reload without a local
// file behind it.
func durableSource(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "vault://")
}

// Restore replaces the store state from a snapshot. Tracks whose source is
// neither durable nor a local path accepted by exists are purged, along with
// their album and queue references; a purged current track clears the
// player. Local paths that still exist get a fresh file handle.
func (s *Store) Restore(snap Snapshot, exists func(path string) bool) {
	s.mu.Lock()

	tracks := make(map[string]*track.Track)
	purged := 0
	for id, t := range snap.Tracks {
		switch {
		case durableSource(t.Source):
			cp := *t
			cp.Local = nil
			tracks[id] = &cp
		case t.Source != "" && exists != nil && exists(t.Source):
			cp := *t
			cp.Local = track.NewLocalFile(t.Source, nil)
			tracks[id] = &cp
		default:
			purged++
		}
	}

	albums := make(map[string]*album.Album)
	for key, a := range snap.Albums {
		kept := make([]string, 0, len(a.TrackIDs))
		for _, id := range a.TrackIDs {
			if _, ok := tracks[id]; ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			continue
		}
		cp := *a
		cp.TrackIDs = kept
		albums[key] = &cp
	}

	queue := make([]track.QueueItem, 0, len(snap.Queue))
	for _, item := range snap.Queue {
		if _, ok := tracks[item.TrackID]; ok {
			queue = append(queue, item)
		}
	}

	player := PlayerState{
		CurrentTrackID: snap.Player.CurrentTrackID,
		Volume:         snap.Player.Volume,
		Rate:           snap.Player.Rate,
	}
	if _, ok := tracks[player.CurrentTrackID]; !ok {
		player.CurrentTrackID = ""
	}
	if player.Volume == 0 {
		player.Volume = 0.85
	}
	if player.Rate == 0 {
		player.Rate = 1
	}

	s.tracks = tracks
	s.albums = albums
	s.queue = queue
	s.player = player
	s.ui = snap.UI
	p := s.player
	s.mu.Unlock()

	if purged > 0 {
		zlog.Info().Int("purged", purged).Msg("store: dropped tracks without a re-attachable source on restore")
	}

	s.publish(EventLibraryChanged, p)
	s.publish(EventQueueChanged, p)
	s.publish(EventTrackChanged, p)
}
