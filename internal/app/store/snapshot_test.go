package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

func TestSnapshot_PlayerProjection(t *testing.T) {
	s := New()
	s.AddTracks([]track.Entry{entry("Solo", "A", "B", 1)})
	id := idByTitle(t, s, "Solo")
	s.Play(id)
	s.SetCurrentTime(33)
	s.SetVolume(0.4)
	s.SetRate(1.25)

	snap := s.Snapshot()

	assert.Equal(t, id, snap.Player.CurrentTrackID)
	assert.False(t, snap.Player.IsPlaying, "playback never survives a reload")
	assert.Zero(t, snap.Player.CurrentTime)
	assert.Equal(t, 0.4, snap.Player.Volume)
	assert.Equal(t, 1.25, snap.Player.Rate)
}

func TestSnapshot_StripsLocalHandles(t *testing.T) {
	s := New()
	s.AddTracks([]track.Entry{{
		Title: "Solo", Artist: "A", Album: "B",
		Source: "/music/solo.mp3",
		Local:  track.NewLocalFile("/music/solo.mp3", nil),
	}})

	snap := s.Snapshot()
	for _, tr := range snap.Tracks {
		assert.Nil(t, tr.Local)
	}

	// the live store still owns its handle
	tr, ok := s.Track(idByTitle(t, s, "Solo"))
	require.True(t, ok)
	assert.True(t, tr.HasLocal())
}

func TestRestore_PurgesUnattachableTracks(t *testing.T) {
	src := New()
	src.AddTracks([]track.Entry{
		{Title: "Kept Local", Artist: "A", Album: "B", Source: "/music/kept.mp3"},
		{Title: "Gone Local", Artist: "A", Album: "B", Source: "/music/gone.mp3"},
		{Title: "Remote", Artist: "A", Album: "C", Source: "vault://thedrop/albums/x.mp3"},
		{Title: "Ephemeral", Artist: "A", Album: "D", Source: ""},
	})
	keptID := idByTitle(t, src, "Kept Local")
	goneID := idByTitle(t, src, "Gone Local")
	src.Enqueue(keptID)
	src.Enqueue(goneID)
	src.Play(goneID)

	snap := src.Snapshot()

	dst := New()
	dst.Restore(snap, func(path string) bool { return path == "/music/kept.mp3" })

	assert.Equal(t, 2, dst.TrackCount())

	kept, ok := dst.Track(keptID)
	require.True(t, ok)
	assert.True(t, kept.HasLocal(), "restored local tracks get a fresh handle")

	_, ok = dst.Track(goneID)
	assert.False(t, ok)
	_, ok = dst.Track(idByTitle(t, src, "Remote"))
	assert.True(t, ok, "durable remote sources survive without a local file")

	items := dst.QueueItems()
	require.Len(t, items, 1)
	assert.Equal(t, keptID, items[0].TrackID)

	p := dst.Player()
	assert.Empty(t, p.CurrentTrackID, "purged current track clears the player")
	assert.False(t, p.IsPlaying)
}

func TestRestore_KeepsSurvivingCurrentTrack(t *testing.T) {
	src := New()
	src.AddTracks([]track.Entry{
		{Title: "Remote", Artist: "A", Album: "C", Source: "https://cdn.example/x.mp3"},
	})
	id := idByTitle(t, src, "Remote")
	src.Play(id)

	dst := New()
	dst.Restore(src.Snapshot(), nil)

	p := dst.Player()
	assert.Equal(t, id, p.CurrentTrackID)
	assert.False(t, p.IsPlaying)
	assert.Zero(t, p.CurrentTime)
}

func TestRestore_DropsEmptiedAlbums(t *testing.T) {
	src := New()
	src.AddTracks([]track.Entry{
		{Title: "Only", Artist: "A", Album: "Lonely", Source: "/music/only.mp3"},
		{Title: "Stays", Artist: "A", Album: "C", Source: "https://cdn.example/s.mp3"},
	})

	dst := New()
	dst.Restore(src.Snapshot(), func(string) bool { return false })

	assert.Len(t, dst.Albums(), 1)
	assert.Equal(t, "C", dst.Albums()[0].Title)
}
