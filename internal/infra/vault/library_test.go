package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

func TestSourceRoundTrip(t *testing.T) {
	src := Source("thedrop", "albums/discovery/01.mp3")
	assert.Equal(t, "vault://thedrop/albums/discovery/01.mp3", src)

	vaultName, object, err := ParseSource(src)
	require.NoError(t, err)
	assert.Equal(t, "thedrop", vaultName)
	assert.Equal(t, "albums/discovery/01.mp3", object)
}

func TestParseSource_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "wrong scheme", source: "https://thedrop/a.mp3"},
		{name: "no object", source: "vault://thedrop"},
		{name: "empty vault", source: "vault:///a.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseSource(tt.source)
			assert.Error(t, err)
		})
	}
}

func TestEntriesFromManifest(t *testing.T) {
	m := &Manifest{
		Album:  "Discovery",
		Artist: "Daft Punk",
		Year:   2001,
		Tracks: []ManifestTrack{
			{FileName: "02.mp3", Title: "Aerodynamic", Index: 2},
			{FileName: "01.mp3", Title: "One More Time", Index: 1},
			{FileName: "missing.mp3", Title: "Lost", Index: 3},
			{FileName: "", Title: "Nameless", Index: 4},
		},
	}
	objects := []string{"discovery/01.mp3", "discovery/02.mp3", "discovery/album.json"}

	entries := EntriesFromManifest("thedrop", "discovery", m, objects)

	require.Len(t, entries, 2, "unmatched and nameless manifest tracks are skipped")
	assert.Equal(t, "One More Time", entries[0].Title)
	assert.Equal(t, "Aerodynamic", entries[1].Title)
	assert.Equal(t, 1, entries[0].TrackNo)
	assert.Equal(t, "Daft Punk", entries[0].Artist)
	assert.Equal(t, "Discovery", entries[0].Album)
	assert.Equal(t, 2001, entries[0].Year)
	assert.Equal(t, "vault://thedrop/discovery/01.mp3", entries[0].Source)
	assert.Zero(t, entries[0].Duration, "durations stay unknown until first playback")
	assert.Nil(t, entries[0].Local)
}

func TestEntriesFromManifest_FallbackTitleAndAlbum(t *testing.T) {
	m := &Manifest{
		Tracks: []ManifestTrack{{FileName: "01 - intro.mp3", Index: 1}},
	}
	entries := EntriesFromManifest("v", "mixtape", m, []string{"mixtape/01 - intro.mp3"})

	require.Len(t, entries, 1)
	assert.Equal(t, "01 - intro", entries[0].Title)
	assert.Equal(t, "mixtape", entries[0].Album, "folder name stands in for a missing album title")
	assert.Equal(t, track.UnknownArtist, entries[0].Artist)
}

func TestEntriesFromListing(t *testing.T) {
	objects := []string{
		"mixtape/b.mp3",
		"mixtape/a.flac",
		"mixtape/album.json",
		"mixtape/cover.png",
	}
	entries := EntriesFromListing("v", "mixtape", objects)

	require.Len(t, entries, 2, "only audio objects become tracks")
	assert.Equal(t, "b", entries[0].Title)
	assert.Equal(t, "a", entries[1].Title)
	assert.Equal(t, "vault://v/mixtape/b.mp3", entries[0].Source)
	assert.Equal(t, "mixtape", entries[0].Album)
}

func TestManifestFromEntries(t *testing.T) {
	entries := []track.Entry{
		{Title: "One More Time", Artist: "Daft Punk", Album: "Discovery", Year: 2001, TrackNo: 1, Source: "/music/discovery/01.mp3"},
		{Title: "Aerodynamic", Artist: "Daft Punk", Album: "Discovery", Year: 2001, TrackNo: 2, Source: "/music/discovery/02.mp3"},
	}

	m := ManifestFromEntries(entries)

	assert.Equal(t, "Discovery", m.Album)
	assert.Equal(t, "Daft Punk", m.Artist)
	assert.Equal(t, 2001, m.Year)
	assert.Equal(t, 2, m.TrackCount)
	require.Len(t, m.Tracks, 2)
	assert.Equal(t, ManifestTrack{FileName: "01.mp3", Title: "One More Time", Index: 1}, m.Tracks[0])
	assert.Equal(t, ManifestTrack{FileName: "02.mp3", Title: "Aerodynamic", Index: 2}, m.Tracks[1])
}

func TestManifestFromEntries_PositionFallbackIndex(t *testing.T) {
	entries := []track.Entry{
		{Title: "intro", Album: "mixtape", Source: "/music/mixtape/intro.mp3"},
		{Title: "outro", Album: "mixtape", Source: "/music/mixtape/outro.mp3"},
	}

	m := ManifestFromEntries(entries)

	require.Len(t, m.Tracks, 2)
	assert.Equal(t, 1, m.Tracks[0].Index, "untagged tracks take their position as index")
	assert.Equal(t, 2, m.Tracks[1].Index)
}

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{
			name: "valid with defaults",
			settings: map[string]any{
				"endpoint":   "storage.example:9000",
				"access_key": "ak",
				"secret_key": "sk",
			},
		},
		{
			name: "missing endpoint",
			settings: map[string]any{
				"access_key": "ak",
				"secret_key": "sk",
			},
			wantErr: true,
		},
		{
			name:     "empty settings",
			settings: map[string]any{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromSettings(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "thedrop", cfg.Vault)
			assert.Equal(t, 60, cfg.URLExpiryMin)
			assert.True(t, cfg.UseSSL)
		})
	}
}
