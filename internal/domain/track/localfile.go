package track

import "sync"

// LocalFile is the ephemeral resource behind an in-session local import.
// The owning track releases it exactly once, on removal; a released handle
// must not be handed to the playback device again.
type LocalFile struct {
	mu       sync.Mutex
	path     string
	released bool
	onClose  func(path string)
}

// NewLocalFile acquires a handle on a local audio file. onClose runs once
// when the handle is released and may be nil.
func NewLocalFile(path string, onClose func(path string)) *LocalFile {
	return &LocalFile{path: path, onClose: onClose}
}

// Path returns the filesystem path backing the handle. Empty after release.
func (f *LocalFile) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return ""
	}
	return f.path
}

// Released reports whether the handle has been released.
func (f *LocalFile) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// Release releases the handle. The second and later calls are no-ops, so
// ownership transfer rather than reference counting governs the lifetime.
func (f *LocalFile) Release() {
	f.mu.Lock()
	if f.released {
		f.mu.Unlock()
		return
	}
	f.released = true
	onClose := f.onClose
	path := f.path
	f.mu.Unlock()

	if onClose != nil {
		onClose(path)
	}
}
