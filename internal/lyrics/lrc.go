package lyrics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/store"
)

// ParseSynced converts raw LRC text ("[mm:ss.xx] line") into timed
// record lines. Unparseable lines are skipped, not fatal.
func ParseSynced(raw string) []store.TimedLine {
	if raw == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	result := make([]store.TimedLine, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		timePart, text := splitLrcLine(trimmed)
		if timePart == "" || text == "" {
			continue
		}

		seconds, err := ParseClock(timePart)
		if err != nil {
			continue
		}

		result = append(result, store.TimedLine{
			Time:    FormatClock(seconds),
			Seconds: seconds,
			Text:    text,
		})
	}

	return result
}

func splitLrcLine(line string) (string, string) {
	if !strings.HasPrefix(line, "[") {
		return "", ""
	}

	endIndex := strings.Index(line, "]")
	if endIndex <= 1 {
		return "", ""
	}

	timePart := line[1:endIndex]
	textPart := strings.TrimSpace(line[endIndex+1:])
	if textPart == "" {
		return "", ""
	}

	return timePart, textPart
}

// ParseClock parses "mm:ss", "mm:ss.xx" or "h:mm:ss" into seconds.
func ParseClock(raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("empty time value")
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	var hours float64
	var minutes float64
	var seconds float64
	var err error

	if len(parts) == 3 {
		hours, err = parseFloatSafe(parts[0])
		if err != nil {
			return 0, err
		}
		minutes, err = parseFloatSafe(parts[1])
		if err != nil {
			return 0, err
		}
		seconds, err = parseFloatSafe(parts[2])
		if err != nil {
			return 0, err
		}
	} else {
		minutes, err = parseFloatSafe(parts[0])
		if err != nil {
			return 0, err
		}
		seconds, err = parseFloatSafe(parts[1])
		if err != nil {
			return 0, err
		}
	}

	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return 0, errors.New("negative time not allowed")
	}

	return total, nil
}

func parseFloatSafe(s string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", s, err)
	}
	return value, nil
}

// FormatClock renders seconds as "mm:ss.ss", the display form stored
// next to the authoritative numeric offset in the cache records.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%02d:%05.2f", minutes, rest)
}

// LinesFromRecord converts record lines to cursor lines. The numeric
// seconds value wins; the formatted string is only a fallback for
// records written by other tools that omit it.
func LinesFromRecord(rec *store.Record) []Line {
	if rec == nil || len(rec.TimedLyrics) == 0 {
		return nil
	}

	lines := make([]Line, 0, len(rec.TimedLyrics))
	for _, tl := range rec.TimedLyrics {
		sec := tl.Seconds
		if sec == 0 && tl.Time != "" {
			parsed, err := ParseClock(tl.Time)
			if err == nil {
				sec = parsed
			}
		}
		if sec < 0 {
			continue
		}
		lines = append(lines, Line{
			Offset: time.Duration(sec * float64(time.Second)),
			Text:   tl.Text,
		})
	}
	return lines
}
