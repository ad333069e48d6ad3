package app

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/lyrics"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/playback"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/track"
)

// frame is everything one tick wants on screen.
type frame struct {
	Track      *track.Info
	Progress   time.Duration
	Duration   time.Duration
	Playing    bool
	StatusLine string
	Window     []lyrics.ContextLine
	Seek       *playback.SeekEvent
	Message    string
}

type renderer struct {
	out io.Writer

	headerStyle lipgloss.Style
	activeStyle lipgloss.Style
	dimStyle    lipgloss.Style
	statusStyle lipgloss.Style
	seekStyle   lipgloss.Style
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out:         out,
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD")),
		activeStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50FA7B")),
		dimStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")),
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")),
		seekStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
	}
}

func (r *renderer) render(f frame) {
	if f.Track == nil {
		fmt.Fprintln(r.out, r.statusStyle.Render(f.Message))
		if f.StatusLine != "" {
			fmt.Fprintln(r.out, r.dimStyle.Render(f.StatusLine))
		}
		return
	}

	state := "PLAYING"
	if !f.Playing {
		state = "PAUSED"
	}

	header := fmt.Sprintf("%s — %s | %s / %s  [%s]",
		f.Track.Title,
		f.Track.Artist(),
		formatDuration(f.Progress),
		formatDuration(f.Duration),
		state,
	)
	fmt.Fprintln(r.out, r.headerStyle.Render(header))

	if f.StatusLine != "" {
		fmt.Fprintln(r.out, r.dimStyle.Render("[lyrics] "+f.StatusLine))
	}

	if len(f.Window) > 0 {
		fmt.Fprintln(r.out)
		for _, ctx := range f.Window {
			stamp := formatDuration(ctx.Line.Offset)
			text := ctx.Line.Text
			if text == "" {
				text = "..."
			}
			if ctx.Active {
				fmt.Fprintln(r.out, r.activeStyle.Render(fmt.Sprintf("> %s  %s", stamp, text)))
			} else {
				fmt.Fprintln(r.out, r.dimStyle.Render(fmt.Sprintf("  %s  %s", stamp, text)))
			}
		}
	}

	if f.Seek != nil && f.Seek.Detected {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.seekStyle.Render(fmt.Sprintf("[seek] Δ=%+dms", f.Seek.Delta.Milliseconds())))
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
