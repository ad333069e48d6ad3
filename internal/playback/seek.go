package playback

import "time"

// DefaultSeekThreshold must exceed normal poll-interval jitter and
// network latency variance, yet stay small enough to catch short
// backward replays.
const DefaultSeekThreshold = 1500 * time.Millisecond

// SeekEvent is recomputed every tick from the previous and current
// snapshots. Delta keeps the sign of the deviation.
type SeekEvent struct {
	Detected bool
	Delta    time.Duration
}

// Detect compares the observed progress against a linear projection of
// the previous one. A zero prevObservedAt means this is the first
// snapshot of a track, which is never a seek.
func Detect(prevProgress time.Duration, prevObservedAt time.Time, curProgress time.Duration, now time.Time, threshold time.Duration) SeekEvent {
	if prevObservedAt.IsZero() {
		return SeekEvent{}
	}

	expected := prevProgress + now.Sub(prevObservedAt)
	delta := curProgress - expected

	abs := delta
	if abs < 0 {
		abs = -abs
	}

	return SeekEvent{
		Detected: abs > threshold,
		Delta:    delta,
	}
}
