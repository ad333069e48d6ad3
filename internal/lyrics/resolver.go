package lyrics

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/store"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/track"
)

// primaryCutoff and fallbackCutoff bound the fuzzy pick among search
// candidates; below the fallback nothing is trusted.
const (
	primaryCutoff  = 65
	fallbackCutoff = 50
)

// Status is the terminal state of one resolution job.
type Status int

const (
	StatusLoaded Status = iota
	StatusPlainOnly
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusPlainOnly:
		return "plain lyrics only"
	case StatusNotFound:
		return "not found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is published exactly once per job.
type Outcome struct {
	Status Status
	Record *store.Record
	Err    error
}

// Job is one in-flight resolution for one track. The result sits in a
// single-slot holder until the tick loop takes it; a job belonging to
// a stale track is simply cancelled and never read.
type Job struct {
	cancel context.CancelFunc

	mu      sync.Mutex
	outcome *Outcome
}

func (j *Job) publish(o Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outcome == nil {
		j.outcome = &o
	}
}

// Take returns the outcome once, after the job completed.
func (j *Job) Take() (Outcome, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outcome == nil {
		return Outcome{}, false
	}
	o := *j.outcome
	j.outcome = nil
	return o, true
}

func (j *Job) Cancel() {
	j.cancel()
}

// Resolver turns a track identity into a lyrics record: local cache
// first, then a direct lrclib get, then multi-query search with fuzzy
// candidate picking. The whole workflow runs off the tick loop.
type Resolver struct {
	cache     *store.Cache
	client    *Client
	score     Scorer
	skipCache bool
}

func NewResolver(cache *store.Cache, client *Client, score Scorer) *Resolver {
	if score == nil {
		score = LevenshteinScorer
	}
	return &Resolver{cache: cache, client: client, score: score}
}

// SetSkipCache forces fresh fetches, used by the --no-cache flag.
func (r *Resolver) SetSkipCache(skip bool) {
	r.skipCache = skip
}

// Begin starts a resolution job for the given track. The caller owns
// the returned job and must cancel it when the track changes.
func (r *Resolver) Begin(parent context.Context, t track.Info) *Job {
	ctx, cancel := context.WithCancel(parent)
	job := &Job{cancel: cancel}

	go func() {
		defer cancel()
		job.publish(r.run(ctx, t))
	}()

	return job
}

// Resolve runs the same workflow synchronously, for one-shot callers.
func (r *Resolver) Resolve(ctx context.Context, t track.Info) Outcome {
	return r.run(ctx, t)
}

func (r *Resolver) run(ctx context.Context, t track.Info) Outcome {
	artist := t.Artist()
	title := t.Title

	if !r.skipCache {
		cached, err := r.cache.Get(artist, title)
		if err == nil {
			return outcomeForRecord(cached)
		}
		if errors.Is(err, store.ErrCacheCorrupt) {
			// unreadable file counts as a miss; refetch and overwrite
			log.WithField("track", t.Key()).Warn("cached lyrics unreadable, refetching")
		}
	}

	rec, err := r.fetch(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Status: StatusFailed, Err: ctx.Err()}
		}
		if errors.Is(err, ErrNotFound) {
			return Outcome{Status: StatusNotFound}
		}
		return Outcome{Status: StatusFailed, Err: err}
	}

	if err := r.cache.Set(artist, title, rec); err != nil {
		log.WithError(err).Warn("failed to cache lyrics")
	}

	return outcomeForRecord(rec)
}

func outcomeForRecord(rec *store.Record) Outcome {
	if rec.HasTimed {
		return Outcome{Status: StatusLoaded, Record: rec}
	}
	if rec.PlainLyrics != "" {
		return Outcome{Status: StatusPlainOnly, Record: rec}
	}
	return Outcome{Status: StatusNotFound}
}

func (r *Resolver) fetch(ctx context.Context, t track.Info) (*store.Record, error) {
	artist := t.Artist()
	title := t.Title
	durationSecs := t.DurationMs / 1000

	// direct get first; most tracks resolve here
	rec, err := r.client.Get(ctx, artist, title, t.Album, durationSecs)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	candidates, err := r.search(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	target := title + " - " + artist
	best, score := pickBest(target, candidates, r.score, primaryCutoff)
	if best == nil {
		best, score = pickBest(target, candidates, r.score, fallbackCutoff)
	}
	if best == nil {
		return nil, ErrNotFound
	}
	log.WithFields(log.Fields{"candidate": best.Label(), "score": score}).Debug("picked lyrics candidate")

	if best.ID != 0 {
		rec, err := r.client.GetByID(ctx, best.ID, artist, title)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	return r.client.Get(ctx, best.Artist, best.Title, best.Album, 0)
}

// search runs the query ladder from most to least specific and merges
// the candidate lists, deduplicated by identity.
func (r *Resolver) search(ctx context.Context, t track.Info) ([]Candidate, error) {
	artist := t.Artist()
	title := t.Title

	queries := []string{
		title + " " + artist,
		artist + " " + title,
		title,
		artist,
	}
	if t.Album != "" {
		queries = append(queries, artist+" "+t.Album)
	}

	seen := make(map[string]bool)
	var merged []Candidate
	var lastErr error

	for _, q := range queries {
		q = strings.TrimSpace(q)
		if len(q) < 2 {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		found, err := r.client.Search(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}

		for _, cand := range found {
			key := strings.ToLower(cand.Artist + "|" + cand.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, cand)
		}
	}

	if len(merged) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return merged, nil
}
