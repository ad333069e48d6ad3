package lyrics

import (
	"sort"
	"time"
)

// resolveEpsilon absorbs the clock skew between playback progress and
// lyric offsets, which come from different sources and roundings.
const resolveEpsilon = 50 * time.Millisecond

// Line is one timed lyric line, offset from track start.
type Line struct {
	Offset time.Duration
	Text   string
}

// ContextLine is a presentation view of a line around the active one.
type ContextLine struct {
	Index  int
	Active bool
	Line   Line
}

// Cursor maps an advancing timestamp to the active line of the current
// track. During normal playback queries are monotonic, so Resolve scans
// from the previous position and stays amortized O(1) regardless of how
// many lines the track has; only a detected seek pays the O(log n)
// binary search in ResetForSeek.
type Cursor struct {
	lines []Line
	pos   int
}

func NewCursor() *Cursor {
	return &Cursor{}
}

// Load replaces the track wholesale and rewinds the position. Ties on
// offset keep their input order.
func (c *Cursor) Load(lines []Line) {
	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	c.lines = sorted
	c.pos = 0
}

func (c *Cursor) Len() int {
	return len(c.lines)
}

func (c *Cursor) Position() int {
	return c.pos
}

// Resolve returns the last line whose offset is at most t (within the
// epsilon), the first line when t precedes every offset, and ok=false
// only for an empty track. Lines sharing an offset resolve to the
// first of them.
func (c *Cursor) Resolve(t time.Duration) (Line, int, bool) {
	if len(c.lines) == 0 {
		return Line{}, 0, false
	}

	limit := t + resolveEpsilon

	// forward for normal playback
	for c.pos+1 < len(c.lines) && c.lines[c.pos+1].Offset <= limit {
		c.pos++
	}
	// backward to correct minor poll-timing overshoot
	for c.pos > 0 && c.lines[c.pos].Offset > limit {
		c.pos--
	}
	// ties on offset settle on the first occurrence
	for c.pos > 0 && c.lines[c.pos-1].Offset == c.lines[c.pos].Offset {
		c.pos--
	}

	return c.lines[c.pos], c.pos, true
}

// ResetForSeek repositions after a discontinuous jump. Scanning forward
// would be linear for large backward seeks, so this binary-searches the
// sorted offsets instead.
func (c *Cursor) ResetForSeek(t time.Duration) {
	if len(c.lines) == 0 {
		return
	}

	limit := t + resolveEpsilon
	idx := sort.Search(len(c.lines), func(i int) bool {
		return c.lines[i].Offset > limit
	})

	if idx > 0 {
		idx--
	}
	for idx > 0 && c.lines[idx-1].Offset == c.lines[idx].Offset {
		idx--
	}
	c.pos = idx
}

// Window returns up to before+after+1 lines around the current
// position, for display only; it never moves the cursor.
func (c *Cursor) Window(before, after int) []ContextLine {
	if len(c.lines) == 0 {
		return nil
	}

	start := c.pos - before
	if start < 0 {
		start = 0
	}
	end := c.pos + after
	if end > len(c.lines)-1 {
		end = len(c.lines) - 1
	}

	window := make([]ContextLine, 0, end-start+1)
	for i := start; i <= end; i++ {
		window = append(window, ContextLine{
			Index:  i,
			Active: i == c.pos,
			Line:   c.lines[i],
		})
	}
	return window
}
