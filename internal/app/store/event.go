package store

// EventType represents a store change notification type.
type EventType int

const (
	EventLibraryChanged   EventType = iota // Tracks/albums were added or removed
	EventQueueChanged                      // Queue contents or order changed
	EventTrackChanged                      // Current track id changed
	EventPlayStateChanged                  // isPlaying toggled
	EventTimeChanged                       // Live progress reported by the engine
	EventSeeked                            // Desired time moved discontinuously (user intent)
	EventVolumeChanged                     // Volume changed
	EventRateChanged                       // Playback rate changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventLibraryChanged:
		return "library_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventTrackChanged:
		return "track_changed"
	case EventPlayStateChanged:
		return "play_state_changed"
	case EventTimeChanged:
		return "time_changed"
	case EventSeeked:
		return "seeked"
	case EventVolumeChanged:
		return "volume_changed"
	case EventRateChanged:
		return "rate_changed"
	default:
		return "unknown"
	}
}

// Event represents a store change notification delivered to subscribers.
type Event struct {
	Type   EventType
	Player PlayerState // Player slice at emission time
}
