package app

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/auth"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/config"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/lyrics"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/playback"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/spotify"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/terminal"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/track"
)

// contextBefore/contextAfter bound the displayed window around the
// active lyric line.
const (
	contextBefore = 1
	contextAfter  = 1
)

// Poller is the playback source; satisfied by *spotify.Client.
type Poller interface {
	Poll(ctx context.Context, accessToken string) spotify.PollResult
}

// Authorizer lends access tokens and absorbs 401s; satisfied by
// *auth.Manager.
type Authorizer interface {
	Token(ctx context.Context) (string, error)
	ReportUnauthorized(ctx context.Context) error
}

// App runs the tick loop: poll, reconcile seek, advance the lyric
// cursor, render. Each tick is strictly ordered; failures degrade that
// tick's output and the loop carries on.
type App struct {
	cfg      *config.Config
	auth     Authorizer
	player   Poller
	resolver *lyrics.Resolver
	renderer *renderer
	clearFn  func()

	cursor *lyrics.Cursor
	job    *lyrics.Job

	current        *track.Info
	lyricsStatus   string
	prevProgress   time.Duration
	prevObservedAt time.Time
}

func New(cfg *config.Config, authorizer Authorizer, player Poller, resolver *lyrics.Resolver, out io.Writer) *App {
	return &App{
		cfg:      cfg,
		auth:     authorizer,
		player:   player,
		resolver: resolver,
		renderer: newRenderer(out),
		clearFn:  terminal.Clear,
		cursor:   lyrics.NewCursor(),
	}
}

// Run drives ticks until the context is cancelled. A rejected refresh
// is the only failure that escapes a tick; it restarts the credential
// lifecycle from scratch instead of killing the process.
func (a *App) Run(ctx context.Context) error {
	terminal.HideCursor()
	defer terminal.Reset()

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		err := a.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, auth.ErrReauthRequired) {
				log.Warn("restarting authorization flow")
				continue
			}
			if errors.Is(err, auth.ErrAuthTimeout) {
				return err
			}
			log.WithError(err).Warn("authorization error, retrying")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick performs exactly one poll → seek-detect → cursor-resolve →
// render pass. Exported so the pipeline can be driven by tests without
// a network in sight.
func (a *App) Tick(ctx context.Context) error {
	token, err := a.auth.Token(ctx)
	if err != nil {
		return err
	}

	res := a.player.Poll(ctx, token)

	switch res.Kind {
	case spotify.KindAuthExpired:
		return a.auth.ReportUnauthorized(ctx)

	case spotify.KindNoActivity:
		a.prevObservedAt = time.Time{}
		a.clearFn()
		a.renderer.render(frame{Message: "nothing playing", StatusLine: a.lyricsStatus})
		return nil

	case spotify.KindTransientError:
		log.WithError(res.Err).Debug("transient poll failure")
		a.clearFn()
		a.renderer.render(frame{Message: "playback temporarily unavailable", StatusLine: a.lyricsStatus})
		return nil

	case spotify.KindUnknownError:
		a.clearFn()
		a.renderer.render(frame{Message: "playback fetch error", StatusLine: a.lyricsStatus})
		log.WithField("status", res.Code).Warn("unexpected playback response")
		return nil
	}

	snap := res.Snapshot
	a.processSnapshot(ctx, snap)
	return nil
}

func (a *App) processSnapshot(ctx context.Context, snap *spotify.Snapshot) {
	if a.current == nil || !snap.Track.IsSameTrack(a.current) {
		a.onTrackChange(ctx, snap)
	}

	// seek reconciliation before the cursor moves; the cursor must see
	// this tick's decision, never a stale one
	seek := playback.Detect(a.prevProgress, a.prevObservedAt, snap.Progress, snap.ObservedAt, a.cfg.SeekThreshold)
	a.prevProgress = snap.Progress
	a.prevObservedAt = snap.ObservedAt

	a.consumeOutcome()

	if seek.Detected && a.cursor.Len() > 0 {
		a.cursor.ResetForSeek(snap.Progress)
	}

	var window []lyrics.ContextLine
	if a.cursor.Len() > 0 {
		a.cursor.Resolve(snap.Progress)
		window = a.cursor.Window(contextBefore, contextAfter)
	}

	var seekNote *playback.SeekEvent
	if seek.Detected {
		seekNote = &seek
	}

	a.clearFn()
	a.renderer.render(frame{
		Track:      &snap.Track,
		Progress:   snap.Progress,
		Duration:   snap.Duration,
		Playing:    snap.IsPlaying,
		StatusLine: a.lyricsStatus,
		Window:     window,
		Seek:       seekNote,
	})
}

func (a *App) onTrackChange(ctx context.Context, snap *spotify.Snapshot) {
	if a.job != nil {
		a.job.Cancel()
	}

	trk := snap.Track
	a.current = &trk
	a.cursor.Load(nil)
	a.prevObservedAt = time.Time{}
	a.lyricsStatus = "searching for timed lyrics..."

	log.WithField("track", trk.Key()).Info("track changed")
	a.job = a.resolver.Begin(ctx, trk)
}

// consumeOutcome reads a finished resolution at most once, and only
// for the track it was started for.
func (a *App) consumeOutcome() {
	if a.job == nil {
		return
	}

	outcome, ok := a.job.Take()
	if !ok {
		return
	}
	a.job = nil

	switch outcome.Status {
	case lyrics.StatusLoaded:
		a.cursor.Load(lyrics.LinesFromRecord(outcome.Record))
		a.lyricsStatus = "synced lyrics loaded"
	case lyrics.StatusPlainOnly:
		a.lyricsStatus = "plain lyrics only, no synced display"
	case lyrics.StatusNotFound:
		a.lyricsStatus = "no lyrics found"
	case lyrics.StatusFailed:
		a.lyricsStatus = "lyrics lookup failed"
		log.WithError(outcome.Err).Warn("lyrics resolution failed")
	}
}
