package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedrop-audio/thedrop/internal/app/store"
	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// fakeDevice records every call so tests can assert on the reconciliation
// outcome without real audio output.
type fakeDevice struct {
	mu         sync.Mutex
	source     string
	position   float64
	duration   float64
	volume     float64
	rate       float64
	playCalls  int
	pauseCalls int
	stopCalls  int
	playErr    error
	onProgress func(float64)
	onEnded    func()
}

func (d *fakeDevice) SetSource(url string, position, duration float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = url
	d.position = position
	d.duration = duration
}

func (d *fakeDevice) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

func (d *fakeDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playCalls++
	return d.playErr
}

func (d *fakeDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauseCalls++
}

func (d *fakeDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopCalls++
	d.source = ""
}

func (d *fakeDevice) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
}

func (d *fakeDevice) SetRate(r float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = r
}

func (d *fakeDevice) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *fakeDevice) SetPosition(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = seconds
}

func (d *fakeDevice) OnProgress(fn func(float64)) { d.onProgress = fn }
func (d *fakeDevice) OnEnded(fn func())           { d.onEnded = fn }
func (d *fakeDevice) Close()                      {}

type fakeResolver struct {
	url string
	err error
}

func (r *fakeResolver) Resolve(context.Context, string) (string, error) {
	return r.url, r.err
}

func seedTrack(t *testing.T, st *store.Store, e track.Entry) string {
	t.Helper()
	st.AddTracks([]track.Entry{e})
	for _, a := range st.Albums() {
		for _, id := range a.TrackIDs {
			if tr, ok := st.Track(id); ok && tr.Title == e.Title {
				return id
			}
		}
	}
	t.Fatalf("track %q not found after seeding", e.Title)
	return ""
}

func TestEngine_NilDeviceDegradesToNop(t *testing.T) {
	e := New(store.New(), nil, nil)
	assert.IsType(t, NopDevice{}, e.device)
}

func TestEngine_VolumeClampedAtDeviceBoundary(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{}
	e := New(st, dev, nil)

	e.handle(store.Event{Type: store.EventVolumeChanged, Player: store.PlayerState{Volume: 1.5}})
	assert.Equal(t, 1.0, dev.volume)

	e.handle(store.Event{Type: store.EventVolumeChanged, Player: store.PlayerState{Volume: -0.2}})
	assert.Equal(t, 0.0, dev.volume)

	// the store itself keeps the raw value
	st.SetVolume(1.5)
	assert.Equal(t, 1.5, st.Player().Volume)
}

func TestEngine_RatePassedUnclamped(t *testing.T) {
	dev := &fakeDevice{}
	e := New(store.New(), dev, nil)
	e.handle(store.Event{Type: store.EventRateChanged, Player: store.PlayerState{Rate: 4}})
	assert.Equal(t, 4.0, dev.rate)
}

func TestEngine_MissingTrackDetachesDevice(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{source: "previous.mp3"}
	e := New(st, dev, nil)

	st.Play("missing-id")
	e.reconcile(st.Player())

	assert.Equal(t, 1, dev.stopCalls)
	assert.Empty(t, dev.source)
	assert.True(t, st.Player().IsPlaying, "store intent is untouched by the engine")
}

func TestEngine_AttachOnlyOnSourceChange(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{}
	e := New(st, dev, nil)

	id := seedTrack(t, st, track.Entry{Title: "Solo", Source: "/music/solo.mp3", Duration: 180})
	st.Play(id)

	e.reconcile(st.Player())
	assert.Equal(t, "/music/solo.mp3", dev.source)
	assert.Equal(t, 180.0, dev.duration)
	firstPlays := dev.playCalls
	assert.Equal(t, 1, firstPlays)

	dev.position = 10
	e.reconcile(st.Player())
	assert.Equal(t, 10.0, dev.position, "re-attaching an identical source must not reset position")
	assert.Equal(t, firstPlays+1, dev.playCalls, "transport is applied independently of attachment")
}

func TestEngine_PauseRequested(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{}
	e := New(st, dev, nil)

	id := seedTrack(t, st, track.Entry{Title: "Solo", Source: "/music/solo.mp3"})
	st.Play(id)
	st.Pause()

	e.reconcile(st.Player())
	assert.Equal(t, 1, dev.pauseCalls)
	assert.Zero(t, dev.playCalls)
}

func TestEngine_RejectedPlayBecomesPlayPending(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{playErr: errors.New("autoplay blocked")}
	e := New(st, dev, nil)

	id := seedTrack(t, st, track.Entry{Title: "Solo", Source: "/music/solo.mp3"})
	st.Play(id)
	e.reconcile(st.Player())

	assert.True(t, e.PlayPending())
	assert.True(t, st.Player().IsPlaying, "the requested state stays so the next gesture retries")

	dev.playErr = nil
	e.reconcile(st.Player())
	assert.False(t, e.PlayPending())
}

func TestEngine_DriftCorrection(t *testing.T) {
	dev := &fakeDevice{}
	e := New(store.New(), dev, nil)

	dev.position = 10
	e.correctDrift(10.2) // inside tolerance
	assert.Equal(t, 10.0, dev.position)

	e.correctDrift(14)
	assert.Equal(t, 14.0, dev.position)
}

func TestEngine_StaleResolutionDiscarded(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{}
	res := &fakeResolver{url: "https://cdn.example/old.mp3"}
	e := New(st, dev, res)

	oldID := seedTrack(t, st, track.Entry{Title: "Old", Artist: "X", Album: "Y", Source: "vault://v/albums/old.mp3"})
	newID := seedTrack(t, st, track.Entry{Title: "New", Artist: "X", Album: "Z", Source: "/music/new.mp3"})

	st.Play(oldID)
	gen := e.generation.Add(1)
	oldTrack, ok := st.Track(oldID)
	require.True(t, ok)
	p := st.Player()

	// the user switches tracks while the resolution is in flight
	st.Play(newID)
	e.reconcile(st.Player())
	require.Equal(t, "/music/new.mp3", dev.source)

	// the stale result arrives: it must not touch the device
	e.resolveAndAttach(gen, oldTrack, p)
	assert.Equal(t, "/music/new.mp3", dev.source)
}

func TestEngine_ResolutionAppliedWhenStillRelevant(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{}
	res := &fakeResolver{url: "https://cdn.example/resolved.mp3"}
	e := New(st, dev, res)

	id := seedTrack(t, st, track.Entry{Title: "Remote", Source: "vault://v/albums/r.mp3"})
	st.Play(id)

	gen := e.generation.Add(1)
	tr, ok := st.Track(id)
	require.True(t, ok)
	e.resolveAndAttach(gen, tr, st.Player())

	assert.Equal(t, "https://cdn.example/resolved.mp3", dev.source)
	assert.Equal(t, 1, dev.playCalls)
}

func TestEngine_ResolutionFallbackChain(t *testing.T) {
	t.Run("local file when the track still owns one", func(t *testing.T) {
		st := store.New()
		dev := &fakeDevice{}
		e := New(st, dev, &fakeResolver{err: errors.New("vault down")})

		id := seedTrack(t, st, track.Entry{
			Title:  "Remote",
			Source: "vault://v/albums/r.mp3",
			Local:  track.NewLocalFile("/music/r.mp3", nil),
		})
		st.Play(id)
		gen := e.generation.Add(1)
		tr, _ := st.Track(id)
		e.resolveAndAttach(gen, tr, st.Player())

		assert.Equal(t, "/music/r.mp3", dev.source)
	})

	t.Run("original source as last resort", func(t *testing.T) {
		st := store.New()
		dev := &fakeDevice{}
		e := New(st, dev, &fakeResolver{err: errors.New("vault down")})

		id := seedTrack(t, st, track.Entry{Title: "Remote", Source: "vault://v/albums/r.mp3"})
		st.Play(id)
		gen := e.generation.Add(1)
		tr, _ := st.Track(id)
		e.resolveAndAttach(gen, tr, st.Player())

		assert.Equal(t, "vault://v/albums/r.mp3", dev.source)
	})
}

func TestEngine_DeviceEventsFlowIntoStore(t *testing.T) {
	st := store.New()
	dev := &fakeDevice{}
	e := New(st, dev, nil)
	e.Start()
	defer e.Stop()

	id := seedTrack(t, st, track.Entry{Title: "First", Artist: "X", Album: "Y", TrackNo: 1, Source: "/m/1.mp3"})
	second := seedTrack(t, st, track.Entry{Title: "Second", Artist: "X", Album: "Y", TrackNo: 2, Source: "/m/2.mp3"})

	st.Play(id)

	dev.onProgress(12.5)
	assert.Equal(t, 12.5, st.Player().CurrentTime)

	dev.onEnded()
	assert.Equal(t, second, st.Player().CurrentTrackID)
}

func TestNeedsResolution(t *testing.T) {
	assert.True(t, NeedsResolution("vault://v/a.mp3"))
	assert.False(t, NeedsResolution("https://cdn.example/a.mp3"))
	assert.False(t, NeedsResolution("/music/a.mp3"))
}
