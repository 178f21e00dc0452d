package engine

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

const tickInterval = 100 * time.Millisecond

// ClockDevice is a wall-clock driven output device: it advances the playback
// position on a ticker instead of decoding audio. Headless deployments use
// it as the real device; its transport and event contract is the same one a
// hardware-backed device would honor.
type ClockDevice struct {
	mu       sync.Mutex
	source   string
	position float64
	duration float64
	playing  bool
	rate     float64
	volume   float64

	onProgress func(seconds float64)
	onEnded    func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClockDevice creates and starts a clock device.
func NewClockDevice() *ClockDevice {
	ctx, cancel := context.WithCancel(context.Background())
	d := &ClockDevice{
		rate:   1,
		volume: 1,
		ctx:    ctx,
		cancel: cancel,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *ClockDevice) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *ClockDevice) tick() {
	d.mu.Lock()
	if !d.playing || d.source == "" {
		d.mu.Unlock()
		return
	}
	d.position += tickInterval.Seconds() * d.rate
	ended := d.duration > 0 && d.position >= d.duration
	if ended {
		d.position = d.duration
		d.playing = false
	}
	progress := d.onProgress
	onEnded := d.onEnded
	pos := d.position
	d.mu.Unlock()

	if progress != nil {
		progress(pos)
	}
	if ended && onEnded != nil {
		onEnded()
	}
}

// SetSource attaches a source and positions it.
func (d *ClockDevice) SetSource(url string, position, duration float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = url
	d.position = position
	d.duration = duration
	zlog.Debug().Str("source", url).Float64("position", position).Msg("clock device: source attached")
}

// Source returns the attached source.
func (d *ClockDevice) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// Play starts advancing the position.
func (d *ClockDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	return nil
}

// Pause halts position advancement, keeping the source.
func (d *ClockDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
}

// Stop halts playback and detaches the source.
func (d *ClockDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	d.source = ""
	d.position = 0
	d.duration = 0
}

// SetVolume sets the output volume.
func (d *ClockDevice) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
}

// SetRate sets the playback speed multiplier.
func (d *ClockDevice) SetRate(r float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = r
}

// Position returns the live position.
func (d *ClockDevice) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// SetPosition forces the live position.
func (d *ClockDevice) SetPosition(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = seconds
}

// OnProgress registers the live-progress callback.
func (d *ClockDevice) OnProgress(fn func(seconds float64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onProgress = fn
}

// OnEnded registers the end-of-track callback.
func (d *ClockDevice) OnEnded(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEnded = fn
}

// Close stops the ticker goroutine.
func (d *ClockDevice) Close() {
	d.cancel()
	d.wg.Wait()
}
