package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	zlog "github.com/rs/zerolog/log"

	"github.com/thedrop-audio/thedrop/internal/app/store"
	"github.com/thedrop-audio/thedrop/internal/domain/track"
)

// driftTolerance is how far the live position may diverge from a seek target
// before the engine forces the device position. It keeps drift correction
// from fighting the device's own progress reporting.
const driftTolerance = 0.3

// Resolver converts a logical streaming source into a directly playable URL.
type Resolver interface {
	Resolve(ctx context.Context, source string) (string, error)
}

// NeedsResolution reports whether a source must go through the resolver
// before the device can play it.
func NeedsResolution(source string) bool {
	return strings.HasPrefix(source, "vault://")
}

// Engine watches the store and drives the device. Construct with New, call
// Start once, Stop on shutdown.
type Engine struct {
	store    *store.Store
	device   Device
	resolver Resolver

	// generation is bumped on every transport reconciliation. In-flight
	// resolutions capture it and re-validate before touching the device, so
	// a stale resolution can never attach over a newer track.
	generation atomic.Uint64

	pendingMu   sync.Mutex
	playPending bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  func()
}

// New creates an engine for the given store. A nil device degrades to a
// NopDevice so an environment without audio support never takes the
// application down. The resolver may be nil when no streaming collaborator
// is configured.
func New(st *store.Store, dev Device, res Resolver) *Engine {
	if dev == nil {
		zlog.Warn().Msg("engine: no output device available, degrading to no-op")
		dev = NopDevice{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:    st,
		device:   dev,
		resolver: res,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start wires device events into the store, subscribes to store changes and
// performs an initial reconciliation so a restored store state reaches the
// device immediately.
func (e *Engine) Start() {
	e.device.OnProgress(e.store.SetCurrentTime)
	e.device.OnEnded(e.store.Next)

	events, unsub := e.store.Subscribe()
	e.unsub = unsub

	p := e.store.Player()
	e.device.SetVolume(clamp01(p.Volume))
	e.device.SetRate(p.Rate)
	e.reconcile(p)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loop(events)
	}()
}

// Stop unsubscribes, stops the loop and releases the device.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
	}
	e.cancel()
	e.wg.Wait()
	e.device.Close()
}

// PlayPending reports whether the last play request was rejected by the
// device and awaits a retry on the next user intent.
func (e *Engine) PlayPending() bool {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.playPending
}

func (e *Engine) loop(events <-chan store.Event) {
	for {
		select {
		case <-e.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handle(ev)
		}
	}
}

func (e *Engine) handle(ev store.Event) {
	switch ev.Type {
	case store.EventVolumeChanged:
		e.device.SetVolume(clamp01(ev.Player.Volume))
	case store.EventRateChanged:
		// Unclamped: the UI layer limits the offered options.
		e.device.SetRate(ev.Player.Rate)
	case store.EventTrackChanged:
		e.reconcile(ev.Player)
	case store.EventPlayStateChanged:
		e.applyTransport(ev.Player.IsPlaying)
	case store.EventSeeked:
		e.correctDrift(ev.Player.CurrentTime)
	case store.EventTimeChanged:
		// The engine's own progress reports; reacting would feed back.
	}
}

// reconcile makes the device's source and transport match the player state.
func (e *Engine) reconcile(p store.PlayerState) {
	gen := e.generation.Add(1)

	t, ok := e.store.CurrentTrack()
	if p.CurrentTrackID == "" || !ok || t.Source == "" {
		if p.CurrentTrackID != "" && !ok {
			zlog.Warn().Str("track", p.CurrentTrackID).Msg("engine: current track not in library, detaching")
		}
		e.setPlayPending(false)
		e.device.Stop()
		return
	}

	if e.resolver != nil && NeedsResolution(t.Source) {
		go e.resolveAndAttach(gen, t, p)
		return
	}

	e.attach(t.Source, t, p)
}

// resolveAndAttach resolves a streaming source off the event loop. The
// result is applied only if it is still relevant: the store must still point
// at the same track and no newer reconciliation may have run. This
// check-before-apply is the cancellation mechanism for in-flight
// resolutions.
func (e *Engine) resolveAndAttach(gen uint64, t *track.Track, p store.PlayerState) {
	concrete, err := e.resolver.Resolve(e.ctx, t.Source)
	if err != nil {
		concrete = e.fallbackSource(t)
		zlog.Warn().Err(err).Str("track", t.ID).Str("fallback", concrete).
			Msg("engine: streaming resolution failed, falling back")
	}

	cur := e.store.Player()
	if cur.CurrentTrackID != t.ID || e.generation.Load() != gen {
		zlog.Debug().Str("track", t.ID).Msg("engine: discarding stale resolution")
		return
	}
	e.attach(concrete, t, cur)
}

// fallbackSource picks the best non-streaming source: a fresh reference to
// the local file when the track still owns one, else the original logical
// source as last resort.
func (e *Engine) fallbackSource(t *track.Track) string {
	if t.HasLocal() {
		return t.Local.Path()
	}
	return t.Source
}

// attach connects a concrete source if it differs from what is attached and
// applies the requested transport state. Attaching an identical source is a
// no-op, so redundant reconciliations are harmless.
func (e *Engine) attach(concrete string, t *track.Track, p store.PlayerState) {
	if e.device.Source() != concrete {
		e.device.SetSource(concrete, p.CurrentTime, t.Duration)
	}
	e.applyTransport(p.IsPlaying)
}

// applyTransport requests play or pause. A rejected play request is
// swallowed and recorded as play-pending: the store keeps isPlaying true so
// the next user intent retries without an extra toggle.
func (e *Engine) applyTransport(isPlaying bool) {
	if !isPlaying {
		e.device.Pause()
		e.setPlayPending(false)
		return
	}
	if err := e.device.Play(); err != nil {
		zlog.Warn().Err(err).Msg("engine: play request rejected, awaiting user gesture")
		e.setPlayPending(true)
		return
	}
	e.setPlayPending(false)
}

// correctDrift forces the device position onto a seek target when the live
// position has diverged past the tolerance.
func (e *Engine) correctDrift(desired float64) {
	live := e.device.Position()
	diff := live - desired
	if diff < 0 {
		diff = -diff
	}
	if diff > driftTolerance {
		e.device.SetPosition(desired)
	}
}

func (e *Engine) setPlayPending(v bool) {
	e.pendingMu.Lock()
	e.playPending = v
	e.pendingMu.Unlock()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
