package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/store"
)

const userAgent = "currentspotify/1.0"

var ErrNotFound = errors.New("lyrics not found")

// Client talks to the lrclib API: /api/get for direct lookups and
// /api/search for candidate discovery.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Candidate is one search result, already normalized from whichever
// key spelling the response used.
type Candidate struct {
	ID     int64
	Artist string
	Title  string
	Album  string
}

// Label is the string handed to the scoring contract.
func (c Candidate) Label() string {
	return c.Title + " - " + c.Artist
}

// Get fetches the best direct match for a track. Returns ErrNotFound
// on a 404 or an empty result.
func (c *Client) Get(ctx context.Context, artist, title, album string, durationSecs int64) (*store.Record, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationSecs > 0 {
		params.Set("duration", strconv.FormatInt(durationSecs, 10))
	}

	payload, err := c.getJSON(ctx, "/api/get?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return payloadToRecord(payload, artist, title)
}

// GetByID fetches a specific record picked from search results.
func (c *Client) GetByID(ctx context.Context, id int64, artist, title string) (*store.Record, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))

	payload, err := c.getJSON(ctx, "/api/get?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return payloadToRecord(payload, artist, title)
}

// Search returns candidates for a free-form query.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib search returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	// search responses come either as a bare array or wrapped in a
	// data/results envelope
	var payloads []lyricsPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		var envelope struct {
			Data    []lyricsPayload `json:"data"`
			Results []lyricsPayload `json:"results"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode lrclib search response: %w", err)
		}
		payloads = envelope.Data
		if len(payloads) == 0 {
			payloads = envelope.Results
		}
	}

	candidates := make([]Candidate, 0, len(payloads))
	for _, p := range payloads {
		artist, title := p.identity()
		if artist == "" || title == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:     p.ID,
			Artist: artist,
			Title:  title,
			Album:  p.AlbumName,
		})
	}
	return candidates, nil
}

func (c *Client) getJSON(ctx context.Context, path string) (*lyricsPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var payload lyricsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode lrclib response: %w", err)
	}
	return &payload, nil
}

// lyricsPayload accepts the closed set of key spellings seen across
// lyrics responses. normalize below is the single place this
// flexibility lives; everything past it sees one canonical record.
type lyricsPayload struct {
	ID           int64  `json:"id"`
	TrackName    string `json:"trackName"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	ArtistName   string `json:"artistName"`
	ArtistSnake  string `json:"artist_name"`
	Artist       string `json:"artist"`
	AlbumName    string `json:"albumName"`
	Instrumental bool   `json:"instrumental"`

	SyncedLyrics string          `json:"syncedLyrics"`
	SyncedSnake  string          `json:"synced_lyrics"`
	Synced       json.RawMessage `json:"synced"`

	PlainLyrics string          `json:"plainLyrics"`
	PlainSnake  string          `json:"plain_lyrics"`
	Lyrics      json.RawMessage `json:"lyrics"`
}

func (p *lyricsPayload) identity() (artist, title string) {
	artist = firstNonEmpty(p.ArtistName, p.ArtistSnake, p.Artist)
	title = firstNonEmpty(p.TrackName, p.Name, p.Title)
	return artist, title
}

// normalize flattens the accepted shapes into (synced LRC text, plain
// text). Timed lines supplied as an array are rebuilt into LRC form so
// one parser handles everything downstream.
func (p *lyricsPayload) normalize() (synced, plain string) {
	synced = firstNonEmpty(p.SyncedLyrics, p.SyncedSnake)

	if synced == "" && len(p.Synced) > 0 {
		synced = flattenSynced(p.Synced)
	}

	var nestedPlain string
	if len(p.Lyrics) > 0 {
		var asString string
		if err := json.Unmarshal(p.Lyrics, &asString); err == nil {
			nestedPlain = asString
		} else {
			var nested struct {
				Synced       string `json:"synced"`
				SyncedLyrics string `json:"syncedLyrics"`
				Plain        string `json:"plain"`
			}
			if err := json.Unmarshal(p.Lyrics, &nested); err == nil {
				if synced == "" {
					synced = firstNonEmpty(nested.Synced, nested.SyncedLyrics)
				}
				nestedPlain = nested.Plain
			}
		}
	}

	plain = firstNonEmpty(p.PlainLyrics, p.PlainSnake, nestedPlain)
	return synced, plain
}

// flattenSynced handles "synced" carried either as an LRC string or as
// an array of {time|timestamp|ts, line|text|lyric} pairs.
func flattenSynced(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asPairs []struct {
		Time      string `json:"time"`
		Timestamp string `json:"timestamp"`
		TS        string `json:"ts"`
		Line      string `json:"line"`
		Text      string `json:"text"`
		Lyric     string `json:"lyric"`
	}
	if err := json.Unmarshal(raw, &asPairs); err != nil {
		return ""
	}

	out := ""
	for _, pair := range asPairs {
		ts := firstNonEmpty(pair.Time, pair.Timestamp, pair.TS)
		text := firstNonEmpty(pair.Line, pair.Text, pair.Lyric)
		if ts == "" || text == "" {
			continue
		}
		out += "[" + ts + "] " + text + "\n"
	}
	return out
}

// payloadToRecord produces the canonical cache record, keyed by the
// track identity the caller asked for rather than whatever spelling
// the provider echoed back.
func payloadToRecord(p *lyricsPayload, artist, title string) (*store.Record, error) {
	if p == nil {
		return nil, ErrNotFound
	}

	synced, plain := p.normalize()
	if synced == "" && plain == "" && !p.Instrumental {
		return nil, ErrNotFound
	}

	timed := ParseSynced(synced)

	return &store.Record{
		Artist:      artist,
		Title:       title,
		HasTimed:    len(timed) > 0,
		TimedLyrics: timed,
		PlainLyrics: plain,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
