// Package store provides the library/queue/player state container.
//
// The store is the single source of truth for the catalog, the queue and the
// transport state. Every mutation goes through a command method and completes
// atomically under one lock, so no partial-failure state is observable.
// Commands never return errors: operating on an unknown reference is a benign
// no-op throughout, which favors resilience over strict validation since the
// store only faces the playback engine and trusted UI intents.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/thedrop-audio/thedrop/internal/domain/album"
	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// ViewMode selects how the collection is rendered.
type ViewMode string

const (
	ViewCarousel ViewMode = "carousel"
	ViewGrid     ViewMode = "grid"
)

// SortOrder selects how albums are sorted in collection views.
type SortOrder string

const (
	SortByTitle  SortOrder = "title"
	SortByArtist SortOrder = "artist"
	SortByYear   SortOrder = "year"
	SortByAdded  SortOrder = "added"
)

// CollectionTab selects the active collection tab.
type CollectionTab string

const (
	TabAlbums    CollectionTab = "albums"
	TabPlaylists CollectionTab = "playlists"
)

// PlayerState is the singleton transport state.
//
// CurrentTime is the authoritative desired position, not the device's live
// position; the engine reconciles the device against it.
type PlayerState struct {
	CurrentTrackID string  `json:"currentTrackId,omitempty"`
	IsPlaying      bool    `json:"isPlaying"`
	CurrentTime    float64 `json:"currentTime"`
	Volume         float64 `json:"volume"` // stored unclamped; the engine clamps at the device boundary
	Rate           float64 `json:"rate"`
}

// UIState holds pure presentation preferences.
type UIState struct {
	ViewMode      ViewMode      `json:"viewMode"`
	SortOrder     SortOrder     `json:"sortOrder"`
	Filter        string        `json:"filter"`
	CollectionTab CollectionTab `json:"collectionTab"`
}

// Store is the state container. Construct with New; multiple independent
// instances may coexist (tests rely on this).
type Store struct {
	mu     sync.RWMutex
	tracks map[string]*track.Track
	albums map[string]*album.Album
	queue  []track.QueueItem
	player PlayerState
	ui     UIState

	subMu sync.RWMutex
	subs  map[string]chan Event
}

// New creates an empty store with default player and UI preferences.
func New() *Store {
	return &Store{
		tracks: make(map[string]*track.Track),
		albums: make(map[string]*album.Album),
		queue:  make([]track.QueueItem, 0),
		player: PlayerState{
			Volume: 0.85,
			Rate:   1,
		},
		ui: UIState{
			ViewMode:      ViewCarousel,
			SortOrder:     SortByAdded,
			CollectionTab: TabAlbums,
		},
		subs: make(map[string]chan Event),
	}
}

// Subscribe registers a change listener. Events are delivered on a buffered
// channel; a slow subscriber loses events rather than blocking a command.
// The returned cancel function closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := uuid.New().String()
	ch := make(chan Event, 64)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publish fans an event out to all subscribers without blocking.
func (s *Store) publish(t EventType, p PlayerState) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	e := Event{Type: t, Player: p}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			zlog.Warn().Str("event", t.String()).Msg("store: subscriber channel full, dropping event")
		}
	}
}

// AddTracks ingests track entries into the library: each entry is normalized,
// assigned an id and import timestamp, inserted into the track map and
// upserted into its owning album, which is then re-sorted. No-op on empty
// input.
func (s *Store) AddTracks(entries []track.Entry) {
	if len(entries) == 0 {
		return
	}

	s.mu.Lock()
	now := time.Now().UnixMilli()
	for _, e := range entries {
		e.Normalize()
		t := &track.Track{
			ID:           uuid.New().String(),
			Title:        e.Title,
			Artist:       e.Artist,
			Album:        e.Album,
			Duration:     e.Duration,
			TrackNo:      e.TrackNo,
			Year:         e.Year,
			CoverDataURL: e.CoverDataURL,
			Source:       e.Source,
			Local:        e.Local,
			ImportedAt:   now,
		}
		s.tracks[t.ID] = t

		key := album.Key(t.Artist, t.Album)
		a, ok := s.albums[key]
		if !ok {
			a = album.New(t)
			s.albums[key] = a
		} else {
			a.Add(t)
		}
		a.Sort(s.tracks)
	}
	s.mu.Unlock()

	s.publish(EventLibraryChanged, s.Player())
}

// RemoveTrack deletes a track, releases any local resource it owns, removes
// it from its album (deleting the album when it empties) and from every queue
// item referencing it. If it was the loaded track, the player is cleared.
// Removing an unknown id is a no-op.
func (s *Store) RemoveTrack(trackID string) {
	s.mu.Lock()
	t, ok := s.tracks[trackID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if t.Local != nil {
		t.Local.Release()
	}
	delete(s.tracks, trackID)

	key := album.Key(t.Artist, t.Album)
	if a, ok := s.albums[key]; ok {
		a.Remove(trackID)
		if a.Empty() {
			delete(s.albums, key)
		}
	}

	kept := s.queue[:0]
	for _, item := range s.queue {
		if item.TrackID != trackID {
			kept = append(kept, item)
		}
	}
	s.queue = kept

	clearedPlayer := false
	if s.player.CurrentTrackID == trackID {
		s.player.CurrentTrackID = ""
		s.player.IsPlaying = false
		s.player.CurrentTime = 0
		clearedPlayer = true
	}
	p := s.player
	s.mu.Unlock()

	s.publish(EventLibraryChanged, p)
	s.publish(EventQueueChanged, p)
	if clearedPlayer {
		s.publish(EventTrackChanged, p)
	}
}

// Play loads a track and starts playback. The id is not validated: a
// dangling id is a caller error the engine tolerates by detaching the device.
// The desired time is kept so a paused track resumes where it stopped.
func (s *Store) Play(trackID string) {
	s.mu.Lock()
	s.player.CurrentTrackID = trackID
	s.player.IsPlaying = true
	p := s.player
	s.mu.Unlock()

	s.publish(EventTrackChanged, p)
}

// Pause stops playback without unloading the track.
func (s *Store) Pause() {
	s.mu.Lock()
	s.player.IsPlaying = false
	p := s.player
	s.mu.Unlock()

	s.publish(EventPlayStateChanged, p)
}

// TogglePlayPause flips the play state. No-op when nothing is loaded, which
// keeps the invariant that IsPlaying is never true without a current track.
func (s *Store) TogglePlayPause() {
	s.mu.Lock()
	if s.player.CurrentTrackID == "" {
		s.mu.Unlock()
		return
	}
	s.player.IsPlaying = !s.player.IsPlaying
	p := s.player
	s.mu.Unlock()

	s.publish(EventPlayStateChanged, p)
}

// Seek moves the desired position. This is user intent: the engine treats it
// as authoritative and drift-corrects the device toward it.
func (s *Store) Seek(seconds float64) {
	s.mu.Lock()
	s.player.CurrentTime = seconds
	p := s.player
	s.mu.Unlock()

	s.publish(EventSeeked, p)
}

// SetCurrentTime records live progress reported by the engine. It shares
// storage with Seek but emits a different event, so the engine never
// drift-corrects against its own progress reports.
func (s *Store) SetCurrentTime(seconds float64) {
	s.mu.Lock()
	s.player.CurrentTime = seconds
	p := s.player
	s.mu.Unlock()

	s.publish(EventTimeChanged, p)
}

// SetVolume stores the volume as given. Clamping happens at the device
// boundary, not here.
func (s *Store) SetVolume(v float64) {
	s.mu.Lock()
	s.player.Volume = v
	p := s.player
	s.mu.Unlock()

	s.publish(EventVolumeChanged, p)
}

// SetRate stores the playback rate multiplier, unclamped.
func (s *Store) SetRate(r float64) {
	s.mu.Lock()
	s.player.Rate = r
	p := s.player
	s.mu.Unlock()

	s.publish(EventRateChanged, p)
}

// Enqueue appends one queue item for the track.
func (s *Store) Enqueue(trackID string) {
	s.mu.Lock()
	s.queue = append(s.queue, track.QueueItem{
		ID:      uuid.New().String(),
		TrackID: trackID,
		AddedAt: time.Now(),
	})
	p := s.player
	s.mu.Unlock()

	s.publish(EventQueueChanged, p)
}

// EnqueueAlbum appends one queue item per album track, preserving album
// order. No-op when the album is unknown.
func (s *Store) EnqueueAlbum(albumID string) {
	s.mu.Lock()
	a, ok := s.albums[albumID]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	for _, trackID := range a.TrackIDs {
		s.queue = append(s.queue, track.QueueItem{
			ID:      uuid.New().String(),
			TrackID: trackID,
			AddedAt: now,
		})
	}
	p := s.player
	s.mu.Unlock()

	s.publish(EventQueueChanged, p)
}

// RemoveFromQueue drops one queue item by item id. No-op if absent.
func (s *Store) RemoveFromQueue(itemID string) {
	s.mu.Lock()
	changed := false
	kept := s.queue[:0]
	for _, item := range s.queue {
		if item.ID == itemID {
			changed = true
			continue
		}
		kept = append(kept, item)
	}
	s.queue = kept
	p := s.player
	s.mu.Unlock()

	if changed {
		s.publish(EventQueueChanged, p)
	}
}

// MoveInQueue relocates the item at sourceIndex to destIndex using
// remove-and-reinsert. An out-of-bounds source leaves the queue unchanged;
// the destination is clamped to the queue bounds.
func (s *Store) MoveInQueue(sourceIndex, destIndex int) {
	s.mu.Lock()
	if sourceIndex < 0 || sourceIndex >= len(s.queue) {
		s.mu.Unlock()
		return
	}
	moved := s.queue[sourceIndex]
	rest := append(s.queue[:sourceIndex:sourceIndex], s.queue[sourceIndex+1:]...)
	if destIndex < 0 {
		destIndex = 0
	}
	if destIndex > len(rest) {
		destIndex = len(rest)
	}
	s.queue = append(rest[:destIndex:destIndex], append([]track.QueueItem{moved}, rest[destIndex:]...)...)
	p := s.player
	s.mu.Unlock()

	s.publish(EventQueueChanged, p)
}

// ClearQueue empties the queue unconditionally.
func (s *Store) ClearQueue() {
	s.mu.Lock()
	s.queue = s.queue[:0]
	p := s.player
	s.mu.Unlock()

	s.publish(EventQueueChanged, p)
}

// Next advances playback. The queue takes precedence: if the current track
// appears in the queue and is not its last item, the following queue item
// plays. Otherwise playback falls through to the next track of the current
// track's album, and stops at the end of that context.
//
// When nothing is loaded, Next starts the first queue item.
//
// Queue position is re-derived by first-match track id lookup on every call;
// duplicate queue entries for one track resolve to the first occurrence.
func (s *Store) Next() {
	s.mu.Lock()
	cur := s.player.CurrentTrackID
	if cur == "" {
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		s.loadLocked(s.queue[0].TrackID)
		p := s.player
		s.mu.Unlock()
		s.publish(EventTrackChanged, p)
		return
	}

	if idx := s.queueIndexLocked(cur); idx >= 0 && idx < len(s.queue)-1 {
		s.loadLocked(s.queue[idx+1].TrackID)
		p := s.player
		s.mu.Unlock()
		s.publish(EventTrackChanged, p)
		return
	}

	next, ok := s.albumNeighborLocked(cur, +1)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.loadLocked(next)
	p := s.player
	s.mu.Unlock()
	s.publish(EventTrackChanged, p)
}

// Previous retreats playback, symmetric to Next but looking backward only:
// the preceding queue item when the current track sits past the queue head,
// else the preceding album track, else nothing.
func (s *Store) Previous() {
	s.mu.Lock()
	cur := s.player.CurrentTrackID
	if cur == "" {
		s.mu.Unlock()
		return
	}

	if idx := s.queueIndexLocked(cur); idx > 0 {
		s.loadLocked(s.queue[idx-1].TrackID)
		p := s.player
		s.mu.Unlock()
		s.publish(EventTrackChanged, p)
		return
	}

	prev, ok := s.albumNeighborLocked(cur, -1)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.loadLocked(prev)
	p := s.player
	s.mu.Unlock()
	s.publish(EventTrackChanged, p)
}

// loadLocked switches the player to a track from the beginning.
func (s *Store) loadLocked(trackID string) {
	s.player.CurrentTrackID = trackID
	s.player.IsPlaying = true
	s.player.CurrentTime = 0
}

// queueIndexLocked returns the first queue position referencing the track,
// or -1.
func (s *Store) queueIndexLocked(trackID string) int {
	for i, item := range s.queue {
		if item.TrackID == trackID {
			return i
		}
	}
	return -1
}

// albumNeighborLocked finds the track adjacent to trackID within its owning
// album, in the given direction.
func (s *Store) albumNeighborLocked(trackID string, dir int) (string, bool) {
	t, ok := s.tracks[trackID]
	if !ok {
		return "", false
	}
	a, ok := s.albums[album.Key(t.Artist, t.Album)]
	if !ok {
		return "", false
	}
	idx := a.IndexOf(trackID)
	if idx < 0 {
		return "", false
	}
	n := idx + dir
	if n < 0 || n >= len(a.TrackIDs) {
		return "", false
	}
	return a.TrackIDs[n], true
}

// SetViewMode sets the collection view mode.
func (s *Store) SetViewMode(m ViewMode) {
	s.mu.Lock()
	s.ui.ViewMode = m
	s.mu.Unlock()
}

// SetSortOrder sets the collection sort order.
func (s *Store) SetSortOrder(o SortOrder) {
	s.mu.Lock()
	s.ui.SortOrder = o
	s.mu.Unlock()
}

// SetFilter sets the free-text collection filter.
func (s *Store) SetFilter(f string) {
	s.mu.Lock()
	s.ui.Filter = f
	s.mu.Unlock()
}

// SetCollectionTab sets the active collection tab.
func (s *Store) SetCollectionTab(t CollectionTab) {
	s.mu.Lock()
	s.ui.CollectionTab = t
	s.mu.Unlock()
}
