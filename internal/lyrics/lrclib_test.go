package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func TestGetCanonicalResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("artist_name"); got != "Queen" {
			t.Errorf("artist_name = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":           42,
			"trackName":    "Bohemian Rhapsody",
			"artistName":   "Queen",
			"syncedLyrics": "[00:01.00] is this the real life\n[00:04.50] is this just fantasy",
			"plainLyrics":  "is this the real life\nis this just fantasy",
		})
	})

	rec, err := client.Get(context.Background(), "Queen", "Bohemian Rhapsody", "", 354)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !rec.HasTimed || len(rec.TimedLyrics) != 2 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Artist != "Queen" || rec.Title != "Bohemian Rhapsody" {
		t.Errorf("identity = %q / %q", rec.Artist, rec.Title)
	}
	if rec.TimedLyrics[0].Seconds != 1 {
		t.Errorf("first offset = %v, want 1", rec.TimedLyrics[0].Seconds)
	}
}

func TestGetAliasShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTimed bool
		wantPlain string
	}{
		{
			"snake case keys",
			`{"artist_name":"A","name":"T","synced_lyrics":"[00:01.00] one","plain_lyrics":"one"}`,
			true, "one",
		},
		{
			"synced as pair array",
			`{"artist":"A","title":"T","synced":[{"time":"00:01.00","line":"one"},{"ts":"00:02.00","text":"two"}]}`,
			true, "",
		},
		{
			"synced as raw lrc string",
			`{"artist":"A","title":"T","synced":"[00:01.00] one"}`,
			true, "",
		},
		{
			"lyrics as plain string",
			`{"artist":"A","title":"T","lyrics":"just words"}`,
			false, "just words",
		},
		{
			"lyrics as nested object",
			`{"artist":"A","title":"T","lyrics":{"synced":"[00:01.00] one","plain":"one"}}`,
			true, "one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			rec, err := client.Get(context.Background(), "A", "T", "", 0)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if rec.HasTimed != tt.wantTimed {
				t.Errorf("HasTimed = %v, want %v", rec.HasTimed, tt.wantTimed)
			}
			if rec.PlainLyrics != tt.wantPlain {
				t.Errorf("PlainLyrics = %q, want %q", rec.PlainLyrics, tt.wantPlain)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	})

	if _, err := client.Get(context.Background(), "A", "T", "", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetEmptyLyricsIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artistName":"A","trackName":"T","syncedLyrics":"","plainLyrics":""}`))
	})

	if _, err := client.Get(context.Background(), "A", "T", "", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetInstrumentalKeepsRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artistName":"A","trackName":"T","instrumental":true}`))
	})

	rec, err := client.Get(context.Background(), "A", "T", "", 0)
	if err != nil {
		t.Fatalf("instrumental track should produce a record: %v", err)
	}
	if rec.HasTimed || rec.PlainLyrics != "" {
		t.Errorf("instrumental record should be empty, got %+v", rec)
	}
}

func TestSearchBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "queen bohemian" {
			t.Errorf("q = %q", got)
		}
		w.Write([]byte(`[
			{"id":1,"trackName":"Bohemian Rhapsody","artistName":"Queen","albumName":"A Night at the Opera"},
			{"id":2,"name":"Bohemian Rhapsody (Live)","artist":"Queen"},
			{"id":3,"trackName":"","artistName":"Nameless"}
		]`))
	})

	candidates, err := client.Search(context.Background(), "queen bohemian")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 (incomplete identity dropped)", len(candidates))
	}
	if candidates[0].ID != 1 || candidates[0].Album != "A Night at the Opera" {
		t.Errorf("first candidate = %+v", candidates[0])
	}
	if candidates[1].Title != "Bohemian Rhapsody (Live)" {
		t.Errorf("aliased candidate = %+v", candidates[1])
	}
}

func TestSearchEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"id":7,"trackName":"T","artistName":"A"}]}`))
	})

	candidates, err := client.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 7 {
		t.Errorf("candidates = %+v", candidates)
	}
}

func TestSearchNotFoundIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	candidates, err := client.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("404 search should not be an error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("candidates = %+v", candidates)
	}
}
