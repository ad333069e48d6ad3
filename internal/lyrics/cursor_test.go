package lyrics

import (
	"testing"
	"time"
)

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func testLines() []Line {
	return []Line{
		{Offset: secs(0), Text: "line zero"},
		{Offset: secs(5), Text: "line five"},
		{Offset: secs(12), Text: "line twelve a"},
		{Offset: secs(12), Text: "line twelve b"},
		{Offset: secs(30), Text: "line thirty"},
	}
}

func TestResolveActiveLine(t *testing.T) {
	tests := []struct {
		name string
		at   time.Duration
		want string
	}{
		{"before first line", -1 * time.Second, "line zero"},
		{"at first offset", 0, "line zero"},
		{"between lines", secs(3), "line zero"},
		{"exactly on offset", secs(5), "line five"},
		{"within epsilon before offset", secs(5) - 30*time.Millisecond, "line five"},
		{"just outside epsilon", secs(5) - 80*time.Millisecond, "line zero"},
		{"duplicate offsets pick first", secs(13), "line twelve a"},
		{"past all lines", secs(100), "line thirty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor()
			c.Load(testLines())
			line, _, ok := c.Resolve(tt.at)
			if !ok {
				t.Fatal("Resolve returned ok=false on a non-empty track")
			}
			if line.Text != tt.want {
				t.Errorf("Resolve(%v) = %q, want %q", tt.at, line.Text, tt.want)
			}
		})
	}
}

func TestDuplicateOffsetsResolveToFirst(t *testing.T) {
	// any query inside [12s, 30s) lands on the first of the two
	// lines at 12s, whether reached by scanning or by a seek reset
	for _, at := range []time.Duration{secs(12), secs(13), secs(21), secs(29.9)} {
		c := NewCursor()
		c.Load(testLines())
		line, pos, _ := c.Resolve(at)
		if pos != 2 || line.Text != "line twelve a" {
			t.Errorf("Resolve(%v) = (%q,%d), want (%q,2)", at, line.Text, pos, "line twelve a")
		}

		c.ResetForSeek(at)
		if c.Position() != 2 {
			t.Errorf("ResetForSeek(%v) parked at %d, want 2", at, c.Position())
		}
	}
}

func TestResolveEmptyTrack(t *testing.T) {
	c := NewCursor()
	if _, _, ok := c.Resolve(secs(10)); ok {
		t.Error("empty cursor should report ok=false")
	}
	c.Load(nil)
	if _, _, ok := c.Resolve(secs(10)); ok {
		t.Error("cursor loaded with nil should report ok=false")
	}
}

func TestResolveMonotonicAdvance(t *testing.T) {
	c := NewCursor()
	c.Load(testLines())

	lastPos := -1
	for at := time.Duration(0); at <= secs(35); at += 500 * time.Millisecond {
		_, pos, ok := c.Resolve(at)
		if !ok {
			t.Fatalf("Resolve(%v) not ok", at)
		}
		if pos < lastPos {
			t.Fatalf("position went backwards at %v: %d -> %d", at, lastPos, pos)
		}
		lastPos = pos
	}
}

func TestResolveBackwardCorrection(t *testing.T) {
	c := NewCursor()
	c.Load(testLines())

	// advance deep into the track, then query slightly earlier; the
	// cursor may step back without an explicit seek reset
	c.Resolve(secs(13))
	line, _, _ := c.Resolve(secs(6))
	if line.Text != "line five" {
		t.Errorf("backward correction gave %q, want %q", line.Text, "line five")
	}
}

func TestResetForSeekMatchesColdResolve(t *testing.T) {
	targets := []time.Duration{0, secs(2), secs(5), secs(11.9), secs(12), secs(29), secs(31), secs(500)}

	for _, target := range targets {
		cold := NewCursor()
		cold.Load(testLines())
		wantLine, wantPos, _ := cold.Resolve(target)

		warm := NewCursor()
		warm.Load(testLines())
		warm.Resolve(secs(30)) // park the cursor far from the target
		warm.ResetForSeek(target)
		line, pos, _ := warm.Resolve(target)

		if pos != wantPos || line.Text != wantLine.Text {
			t.Errorf("seek to %v: got (%q,%d), cold resolve gives (%q,%d)",
				target, line.Text, pos, wantLine.Text, wantPos)
		}
	}
}

func TestResetForSeekBeforeAllOffsets(t *testing.T) {
	lines := []Line{
		{Offset: secs(10), Text: "first"},
		{Offset: secs(20), Text: "second"},
	}
	c := NewCursor()
	c.Load(lines)
	c.Resolve(secs(25))

	c.ResetForSeek(secs(1))
	if c.Position() != 0 {
		t.Errorf("seek before all offsets should clamp to 0, got %d", c.Position())
	}
}

func TestLoadSortsUnorderedInput(t *testing.T) {
	c := NewCursor()
	c.Load([]Line{
		{Offset: secs(30), Text: "late"},
		{Offset: secs(0), Text: "early"},
		{Offset: secs(15), Text: "middle"},
	})

	line, pos, _ := c.Resolve(secs(16))
	if line.Text != "middle" || pos != 1 {
		t.Errorf("got (%q,%d), want (middle,1)", line.Text, pos)
	}
}

func TestWindow(t *testing.T) {
	c := NewCursor()
	c.Load(testLines())
	c.Resolve(secs(13)) // active at index 2

	window := c.Window(1, 1)
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	if !window[1].Active || window[0].Active || window[2].Active {
		t.Error("exactly the middle entry should be active")
	}
	if window[1].Line.Text != "line twelve a" {
		t.Errorf("active line = %q, want %q", window[1].Line.Text, "line twelve a")
	}

	// window clamped at the start of the track
	c.ResetForSeek(0)
	c.Resolve(0)
	window = c.Window(2, 1)
	if len(window) != 2 {
		t.Errorf("window at track start = %d entries, want 2", len(window))
	}
	if window[0].Index != 0 || !window[0].Active {
		t.Error("first entry should be the active line at index 0")
	}
}
