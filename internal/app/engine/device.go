// Package engine provides the playback engine adapter.
//
// The engine owns the single media output device and reconciles it against
// the store: store state is the sole truth for intent, the device only
// reports live position and end-of-track. The engine keeps no state of its
// own beyond the device handle and a play-pending flag, so it can be torn
// down and rebuilt from current store state at any time.
package engine

// Device is the media output handle the engine drives. Implementations must
// tolerate redundant calls; attaching the source already attached is cheap.
type Device interface {
	// SetSource attaches a concrete source and positions it. duration may be
	// 0 when unknown; such a source plays until stopped.
	SetSource(url string, position, duration float64)
	// Source returns the currently attached source, or "" when detached.
	Source() string
	// Play requests playback. A rejected request returns an error and leaves
	// the device paused.
	Play() error
	// Pause halts playback without detaching the source.
	Pause()
	// Stop halts playback and detaches the source.
	Stop()
	// SetVolume sets the output volume. Callers clamp to [0, 1].
	SetVolume(v float64)
	// SetRate sets the playback speed multiplier.
	SetRate(r float64)
	// Position returns the live playback position in seconds.
	Position() float64
	// SetPosition forces the live position.
	SetPosition(seconds float64)
	// OnProgress registers the live-progress callback.
	OnProgress(fn func(seconds float64))
	// OnEnded registers the end-of-track callback.
	OnEnded(fn func())
	// Close releases the device.
	Close()
}

// NopDevice is the degraded device used when no real output is available.
// Every operation succeeds and does nothing, so the rest of the application
// keeps functioning without audio.
type NopDevice struct{}

func (NopDevice) SetSource(string, float64, float64) {}
func (NopDevice) Source() string                     { return "" }
func (NopDevice) Play() error                        { return nil }
func (NopDevice) Pause()                             {}
func (NopDevice) Stop()                              {}
func (NopDevice) SetVolume(float64)                  {}
func (NopDevice) SetRate(float64)                    {}
func (NopDevice) Position() float64                  { return 0 }
func (NopDevice) SetPosition(float64)                {}
func (NopDevice) OnProgress(func(float64))           {}
func (NopDevice) OnEnded(func())                     {}
func (NopDevice) Close()                             {}
