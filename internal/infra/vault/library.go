package vault

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	zlog "github.com/rs/zerolog/log"

	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// ManifestName is the per-album metadata object.
const ManifestName = "album.json"

// Manifest describes one published album folder.
type Manifest struct {
	Album      string          `json:"album"`
	Artist     string          `json:"artist"`
	Year       int             `json:"year,omitempty"`
	TrackCount int             `json:"trackCount"`
	Tracks     []ManifestTrack `json:"tracks"`
}

// ManifestTrack describes one track inside a manifest. Index is the play
// order within the album.
type ManifestTrack struct {
	FileName string `json:"fileName"`
	Title    string `json:"title"`
	Index    int    `json:"index"`
}

// AlbumSummary is a browsable remote album.
type AlbumSummary struct {
	Vault      string
	Folder     string
	Title      string
	Artist     string
	TrackCount int
}

// ListAlbums lists the vault's album folders, reading each folder's manifest
// for title and track count. Folders without a manifest fall back to the
// folder name.
func (c *Client) ListAlbums(ctx context.Context) ([]AlbumSummary, error) {
	var albums []AlbumSummary
	for obj := range c.mc.ListObjects(ctx, c.vault, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, "failed to list vault folders")
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		folder := strings.TrimSuffix(obj.Key, "/")

		summary := AlbumSummary{
			Vault:  c.vault,
			Folder: folder,
			Title:  folder,
		}
		if m, err := c.readManifest(ctx, folder); err == nil {
			summary.Title = m.Album
			summary.Artist = m.Artist
			summary.TrackCount = m.TrackCount
			if summary.TrackCount == 0 {
				summary.TrackCount = len(m.Tracks)
			}
		} else {
			zlog.Debug().Err(err).Str("folder", folder).Msg("vault: no readable manifest, using folder name")
		}
		albums = append(albums, summary)
	}
	return albums, nil
}

// FetchAlbumTracks reconstructs track entries for a remote album. With a
// manifest present, its entries drive titles and ordering; otherwise every
// audio object in the folder becomes a track. Durations stay 0 until first
// playback; sources use the vault:// scheme and are resolved lazily.
func (c *Client) FetchAlbumTracks(ctx context.Context, folder string) ([]track.Entry, error) {
	objects, err := c.listFolder(ctx, folder)
	if err != nil {
		return nil, err
	}

	manifest, err := c.readManifest(ctx, folder)
	if err != nil {
		zlog.Warn().Err(err).Str("folder", folder).Msg("vault: manifest unreadable, listing audio objects")
		return EntriesFromListing(c.vault, folder, objects), nil
	}
	return EntriesFromManifest(c.vault, folder, manifest, objects), nil
}

// EntriesFromManifest builds entries from manifest tracks, matched against
// the objects actually present in the folder. Unmatched manifest tracks are
// skipped. The result is sorted by manifest index.
func EntriesFromManifest(vaultName, folder string, m *Manifest, objects []string) []track.Entry {
	present := make(map[string]bool, len(objects))
	for _, o := range objects {
		present[path.Base(o)] = true
	}

	var entries []track.Entry
	for _, mt := range m.Tracks {
		if mt.FileName == "" {
			continue
		}
		if !present[mt.FileName] {
			zlog.Warn().Str("file", mt.FileName).Str("folder", folder).
				Msg("vault: manifest track has no matching object, skipping")
			continue
		}
		title := mt.Title
		if title == "" {
			title = trimAudioExt(mt.FileName)
		}
		e := track.Entry{
			Title:   title,
			Artist:  m.Artist,
			Album:   m.Album,
			TrackNo: mt.Index,
			Year:    m.Year,
			Source:  Source(vaultName, path.Join(folder, mt.FileName)),
		}
		if e.Album == "" {
			e.Album = folder
		}
		e.Normalize()
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].TrackNo < entries[j].TrackNo })
	return entries
}

// EntriesFromListing builds entries from the folder's audio objects when no
// manifest is available.
func EntriesFromListing(vaultName, folder string, objects []string) []track.Entry {
	var entries []track.Entry
	for _, o := range objects {
		if !isAudioObject(o) {
			continue
		}
		e := track.Entry{
			Title:  trimAudioExt(path.Base(o)),
			Album:  folder,
			Source: Source(vaultName, o),
		}
		e.Normalize()
		entries = append(entries, e)
	}
	return entries
}

// ManifestFromEntries derives an album manifest from parsed local tracks.
// The first entry's artist/album/year describe the album; a track without a
// number gets its position as the index.
func ManifestFromEntries(entries []track.Entry) Manifest {
	var m Manifest
	for i, e := range entries {
		if i == 0 {
			m.Album = e.Album
			m.Artist = e.Artist
			m.Year = e.Year
		}
		idx := e.TrackNo
		if idx == 0 {
			idx = i + 1
		}
		m.Tracks = append(m.Tracks, ManifestTrack{
			FileName: filepath.Base(e.Source),
			Title:    e.Title,
			Index:    idx,
		})
	}
	m.TrackCount = len(m.Tracks)
	return m
}

// PublishAlbum uploads an album folder: every reader keyed by file name plus
// the generated manifest.
func (c *Client) PublishAlbum(ctx context.Context, folder string, m Manifest, files map[string]io.Reader) error {
	m.TrackCount = len(m.Tracks)

	for name, r := range files {
		key := path.Join(folder, name)
		err := c.retry(ctx, func() error {
			_, err := c.mc.PutObject(ctx, c.vault, key, r, -1, minio.PutObjectOptions{
				ContentType: "audio/mpeg",
			})
			return err
		})
		if err != nil {
			return errors.Wrapf(err, "failed to upload %s", key)
		}
		zlog.Info().Str("object", key).Msg("vault: uploaded")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	key := path.Join(folder, ManifestName)
	err = c.retry(ctx, func() error {
		_, err := c.mc.PutObject(ctx, c.vault, key, strings.NewReader(string(data)), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to upload manifest")
	}
	return nil
}

func (c *Client) listFolder(ctx context.Context, folder string) ([]string, error) {
	var objects []string
	prefix := folder + "/"
	for obj := range c.mc.ListObjects(ctx, c.vault, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "failed to list folder %s", folder)
		}
		objects = append(objects, obj.Key)
	}
	return objects, nil
}

func (c *Client) readManifest(ctx context.Context, folder string) (*Manifest, error) {
	obj, err := c.mc.GetObject(ctx, c.vault, path.Join(folder, ManifestName), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get manifest")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}
	return &m, nil
}

func isAudioObject(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3", ".m4a", ".flac", ".ogg", ".wav":
		return true
	}
	return false
}

func trimAudioExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
