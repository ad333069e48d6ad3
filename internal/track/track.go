package track

import "strings"

// Info identifies a track as reported by the playback endpoint.
type Info struct {
	ID         string
	Title      string
	Artists    []string
	Album      string
	DurationMs int64
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && len(t.Artists) > 0
}

func (t *Info) Artist() string {
	if t == nil || len(t.Artists) == 0 {
		return ""
	}
	return strings.Join(t.Artists, ", ")
}

// Key is the canonical "artist - title" identity used for lyric lookup
// and cache filenames.
func (t *Info) Key() string {
	if t == nil {
		return ""
	}
	return t.Artist() + " - " + t.Title
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.ID != "" && other.ID != "" {
		return t.ID == other.ID
	}
	return t.Title == other.Title && t.Artist() == other.Artist()
}
