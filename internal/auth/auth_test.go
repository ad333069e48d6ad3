package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/config"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/session"
)

func testManager(t *testing.T, accountsURL string) (*Manager, *session.Store) {
	t.Helper()

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	cfg := &config.Config{
		ClientID:      "test-client",
		AccountsURL:   accountsURL,
		Scopes:        "user-read-playback-state",
		CallbackPort:  18894,
		AuthTimeout:   3 * time.Second,
		RefreshMargin: time.Minute,
		HTTPTimeout:   2 * time.Second,
		RetryLimit:    2,
		RetryDelay:    5 * time.Millisecond,
	}

	m := NewManager(cfg, store)
	m.openURL = func(string) error { return nil }
	return m, store
}

func seedSession(t *testing.T, store *session.Store, expiresIn time.Duration) *session.Credential {
	t.Helper()
	cred := &session.Credential{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Now().Add(expiresIn).Unix(),
	}
	if err := store.Save(cred); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return cred
}

func TestTokenUsesSavedSession(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)
	seedSession(t, store, time.Hour)

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "stored-access" {
		t.Errorf("token = %q", token)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("valid session still hit the network %d times", calls)
	}
	if m.State() != StateAuthorized {
		t.Errorf("state = %v", m.State())
	}
}

func TestTokenProactiveRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.Form.Get("refresh_token"); got != "stored-refresh" {
			t.Errorf("refresh_token = %q", got)
		}
		// no refresh_token in the response: the old one must be kept
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-access",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)
	// expires inside the one-minute margin
	seedSession(t, store, 30*time.Second)

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "fresh-access" {
		t.Errorf("token = %q, want the refreshed one", token)
	}

	// refreshed credential must be persisted, with the refresh token
	// carried over
	saved, err := store.Load()
	if err != nil {
		t.Fatalf("refreshed session not persisted: %v", err)
	}
	if saved.AccessToken != "fresh-access" || saved.RefreshToken != "stored-refresh" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestReportUnauthorizedRefreshes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "reactive-access",
			"refresh_token": "rotated-refresh",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)
	seedSession(t, store, time.Hour)

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := m.ReportUnauthorized(context.Background()); err != nil {
		t.Fatalf("ReportUnauthorized failed: %v", err)
	}

	cred := m.Current()
	if cred == nil || cred.AccessToken != "reactive-access" || cred.RefreshToken != "rotated-refresh" {
		t.Errorf("credential after reactive refresh = %+v", cred)
	}
}

func TestReportUnauthorizedRefreshRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)
	seedSession(t, store, time.Hour)

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := m.ReportUnauthorized(context.Background())
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("err = %v, want ErrReauthRequired", err)
	}

	// the dead session must be gone, in memory and on disk
	if m.Current() != nil {
		t.Error("credential survived a rejected refresh")
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("session file survived a rejected refresh: %v", err)
	}
}

func TestReportUnauthorizedWithoutCredential(t *testing.T) {
	m, _ := testManager(t, "http://127.0.0.1:1")
	if err := m.ReportUnauthorized(context.Background()); !errors.Is(err, ErrReauthRequired) {
		t.Errorf("err = %v, want ErrReauthRequired", err)
	}
}

func TestLoginHandshake(t *testing.T) {
	var exchanged atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		exchanged.Store(r.Form)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)

	var challenge atomic.Value
	m.openURL = func(rawURL string) error {
		// play the user's browser: parse the consent url, remember the
		// challenge, then follow the redirect with a code
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		q := parsed.Query()
		if q.Get("response_type") != "code" || q.Get("code_challenge_method") != "S256" {
			t.Errorf("authorize query = %v", q)
		}
		challenge.Store(q.Get("code_challenge"))

		go func() {
			resp, err := http.Get(q.Get("redirect_uri") + "?code=consent-code")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	if token != "new-access" {
		t.Errorf("token = %q", token)
	}

	form := exchanged.Load().(url.Values)
	if got := form.Get("grant_type"); got != "authorization_code" {
		t.Errorf("grant_type = %q", got)
	}
	if got := form.Get("code"); got != "consent-code" {
		t.Errorf("code = %q", got)
	}

	// the exchanged verifier must hash to the challenge shown in the
	// consent url
	sum := sha256.Sum256([]byte(form.Get("code_verifier")))
	if want := base64.RawURLEncoding.EncodeToString(sum[:]); challenge.Load().(string) != want {
		t.Error("code_verifier does not match the code_challenge")
	}

	// session persisted for the next run
	saved, err := store.Load()
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if saved.AccessToken != "new-access" || saved.RefreshToken != "new-refresh" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestLoginTimeout(t *testing.T) {
	m, _ := testManager(t, "http://127.0.0.1:1")
	m.authTimeout = 50 * time.Millisecond

	// browser never completes the redirect
	if _, err := m.Token(context.Background()); !errors.Is(err, ErrAuthTimeout) {
		t.Errorf("err = %v, want ErrAuthTimeout", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state after timeout = %v", m.State())
	}
}

func TestLogout(t *testing.T) {
	m, store := testManager(t, "http://127.0.0.1:1")
	seedSession(t, store, time.Hour)

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("session survived logout: %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %v", m.State())
	}
}

func TestTokenDiscardsUnrefreshableSession(t *testing.T) {
	var refreshCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") == "refresh_token" {
			atomic.AddInt32(&refreshCalls, 1)
			http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "relogin-access",
			"refresh_token": "relogin-refresh",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)
	// expired session with no refresh token: nothing to refresh with
	if err := store.Save(&session.Credential{
		AccessToken: "stored-access",
		ExpiresAt:   time.Now().Add(-time.Minute).Unix(),
	}); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	m.openURL = func(rawURL string) error {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		redirect := parsed.Query().Get("redirect_uri")
		go func() {
			resp, err := http.Get(redirect + "?code=fresh-consent")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "relogin-access" {
		t.Errorf("token = %q, want the one from the fresh handshake", token)
	}
	if atomic.LoadInt32(&refreshCalls) != 0 {
		t.Errorf("refresh attempted %d times with no refresh token", refreshCalls)
	}
}

func TestStaleRefreshFallsBackToLogin(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") == "refresh_token" {
			atomic.AddInt32(&tokenCalls, 1)
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "relogin-access",
			"refresh_token": "relogin-refresh",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	m, store := testManager(t, srv.URL)
	// stale persisted session whose refresh token is long dead
	seedSession(t, store, -time.Minute)

	m.openURL = func(rawURL string) error {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		redirect := parsed.Query().Get("redirect_uri")
		go func() {
			resp, err := http.Get(redirect + "?code=fresh-consent")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "relogin-access" {
		t.Errorf("token = %q, want the one from the fresh handshake", token)
	}
	if atomic.LoadInt32(&tokenCalls) == 0 {
		t.Error("refresh was never attempted before falling back")
	}
}
