package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/config"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/track"
)

// ResultKind classifies the outcome of one poll.
type ResultKind int

const (
	// KindNoActivity means nothing is currently playing.
	KindNoActivity ResultKind = iota
	// KindSnapshot carries a playback snapshot.
	KindSnapshot
	// KindAuthExpired means the credential was rejected and the
	// lifecycle manager should refresh.
	KindAuthExpired
	// KindTransientError is a network or server-side failure that
	// survived the internal retry budget.
	KindTransientError
	// KindUnknownError is any other status, carried in Code.
	KindUnknownError
)

// Snapshot is one observation of remote playback, stamped with the
// local clock the moment the response was decoded. Immutable.
type Snapshot struct {
	Track      track.Info
	Progress   time.Duration
	Duration   time.Duration
	IsPlaying  bool
	ObservedAt time.Time
}

// PollResult is the normalized outcome of one playback poll.
type PollResult struct {
	Kind     ResultKind
	Snapshot *Snapshot
	Code     int
	Err      error
}

// Client polls the currently-playing endpoint. It owns no credential:
// the caller passes a borrowed token on every poll.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryLimit int
	retryDelay time.Duration
	now        func() time.Time
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.APIBaseURL,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst),
		retryLimit: cfg.RetryLimit,
		retryDelay: cfg.RetryDelay,
		now:        time.Now,
	}
}

// Poll fetches one playback snapshot. Transport failures and 5xx/429
// responses are retried internally with a fixed delay before being
// surfaced as KindTransientError.
func (c *Client) Poll(ctx context.Context, accessToken string) PollResult {
	var lastErr error

	for attempt := 0; attempt < c.retryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return PollResult{Kind: KindTransientError, Err: ctx.Err()}
			case <-time.After(c.retryDelay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return PollResult{Kind: KindTransientError, Err: err}
		}

		res, retryable, err := c.pollOnce(ctx, accessToken)
		if err == nil {
			return res
		}
		if !retryable {
			return PollResult{Kind: KindTransientError, Err: err}
		}
		lastErr = err
	}

	return PollResult{Kind: KindTransientError, Err: lastErr}
}

func (c *Client) pollOnce(ctx context.Context, accessToken string) (PollResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return PollResult{}, false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PollResult{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return PollResult{Kind: KindNoActivity}, false, nil

	case resp.StatusCode == http.StatusOK:
		snap, err := c.decodeSnapshot(resp.Body)
		if err != nil {
			return PollResult{}, false, err
		}
		if snap == nil {
			// ads and local files come back with a null item
			return PollResult{Kind: KindNoActivity}, false, nil
		}
		return PollResult{Kind: KindSnapshot, Snapshot: snap}, false, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return PollResult{Kind: KindAuthExpired, Code: resp.StatusCode}, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PollResult{}, true, fmt.Errorf("playback endpoint returned status %d: %s", resp.StatusCode, string(body))

	default:
		return PollResult{Kind: KindUnknownError, Code: resp.StatusCode}, false, nil
	}
}

type playbackPayload struct {
	ProgressMs int64 `json:"progress_ms"`
	IsPlaying  bool  `json:"is_playing"`
	Item       *struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
		DurationMs int64 `json:"duration_ms"`
	} `json:"item"`
}

func (c *Client) decodeSnapshot(r io.Reader) (*Snapshot, error) {
	body, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload playbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode playback payload: %w", err)
	}
	if payload.Item == nil {
		return nil, nil
	}

	artists := make([]string, 0, len(payload.Item.Artists))
	for _, a := range payload.Item.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	return &Snapshot{
		Track: track.Info{
			ID:         payload.Item.ID,
			Title:      payload.Item.Name,
			Artists:    artists,
			Album:      payload.Item.Album.Name,
			DurationMs: payload.Item.DurationMs,
		},
		Progress:   time.Duration(payload.ProgressMs) * time.Millisecond,
		Duration:   time.Duration(payload.Item.DurationMs) * time.Millisecond,
		IsPlaying:  payload.IsPlaying,
		ObservedAt: c.now(),
	}, nil
}
