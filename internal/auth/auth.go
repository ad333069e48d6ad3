package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/config"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/session"
)

var (
	ErrAuthTimeout         = errors.New("timed out waiting for authorization code")
	ErrTokenExchangeFailed = errors.New("token exchange returned no access token")
	ErrRefreshFailed       = errors.New("token refresh rejected")
	ErrReauthRequired      = errors.New("credential invalidated, re-authorization required")
)

// State of the credential lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthorized
	StateRefreshing
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorized:
		return "authorized"
	case StateRefreshing:
		return "refreshing"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Manager owns the credential for its whole lifecycle: the PKCE
// handshake, proactive refresh inside the expiry margin, reactive
// refresh when a poll is rejected, and invalidation when a refresh is
// refused. Callers only ever borrow the current access token.
type Manager struct {
	clientID      string
	accountsURL   string
	scopes        string
	callbackPort  int
	authTimeout   time.Duration
	refreshMargin time.Duration
	retryLimit    int
	retryDelay    time.Duration

	store      *session.Store
	httpClient *http.Client

	// openURL is swapped out in tests
	openURL func(string) error
	now     func() time.Time

	mu    sync.Mutex
	cred  *session.Credential
	state State
}

func NewManager(cfg *config.Config, store *session.Store) *Manager {
	return &Manager{
		clientID:      cfg.ClientID,
		accountsURL:   cfg.AccountsURL,
		scopes:        cfg.Scopes,
		callbackPort:  cfg.CallbackPort,
		authTimeout:   cfg.AuthTimeout,
		refreshMargin: cfg.RefreshMargin,
		retryLimit:    cfg.RetryLimit,
		retryDelay:    cfg.RetryDelay,
		store:         store,
		httpClient:    &http.Client{Timeout: cfg.HTTPTimeout},
		openURL:       browser.OpenURL,
		now:           time.Now,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns an access token that is valid for at least the refresh
// margin, running the handshake or a proactive refresh first if needed.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		cred, err := m.store.Load()
		if err == nil {
			// a session that is neither usable nor refreshable is dead weight
			if cred.Valid(m.now()) || cred.RefreshToken != "" {
				m.cred = cred
				m.state = StateAuthorized
				log.Debug("loaded saved session")
			}
		}
	}

	if m.cred == nil {
		if err := m.loginLocked(ctx); err != nil {
			return "", err
		}
		return m.cred.AccessToken, nil
	}

	if m.cred.ExpiresWithin(m.now(), m.refreshMargin) {
		if err := m.refreshLocked(ctx); err != nil {
			// a stale persisted session may hold a dead refresh token;
			// fall through to a fresh handshake instead of giving up
			m.invalidateLocked(err)
			if err := m.loginLocked(ctx); err != nil {
				return "", err
			}
		}
	}

	return m.cred.AccessToken, nil
}

// ReportUnauthorized is the reactive path: the poller saw a 401, so the
// access token is dead regardless of what the expiry claims. A rejected
// refresh invalidates the credential entirely.
func (m *Manager) ReportUnauthorized(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return ErrReauthRequired
	}

	if err := m.refreshLocked(ctx); err != nil {
		m.invalidateLocked(err)
		return ErrReauthRequired
	}
	return nil
}

// Logout deletes the persisted session and forgets the credential.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = nil
	m.state = StateUnauthenticated
	return m.store.Delete()
}

// Current returns a copy of the credential, if any.
func (m *Manager) Current() *session.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return nil
	}
	copied := *m.cred
	return &copied
}

func (m *Manager) invalidateLocked(cause error) {
	// reported once per failed cycle, never a silent loop
	log.WithError(cause).Warn("credential invalidated, removing saved session")
	m.cred = nil
	m.state = StateInvalid
	if err := m.store.Delete(); err != nil {
		log.WithError(err).Warn("failed to remove session file")
	}
	m.state = StateUnauthenticated
}

// loginLocked runs the full authorization-code handshake: fresh PKCE
// pair, one-shot callback listener, browser hand-off, bounded wait,
// code-for-token exchange.
func (m *Manager) loginLocked(ctx context.Context) error {
	m.state = StateAuthenticating

	pkce, err := newPKCEPair()
	if err != nil {
		m.state = StateUnauthenticated
		return err
	}

	listener, err := newCallbackListener(m.callbackPort)
	if err != nil {
		m.state = StateUnauthenticated
		return err
	}
	defer listener.close()

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", m.callbackPort)
	authURL := m.authorizeURL(pkce.challenge, redirectURI)

	log.WithField("url", authURL).Info("opening browser for authorization")
	if err := m.openURL(authURL); err != nil {
		log.WithError(err).Warn("could not open browser, visit the URL manually")
	}

	code, err := listener.wait(ctx, m.authTimeout)
	if err != nil {
		m.state = StateUnauthenticated
		return err
	}

	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", pkce.verifier)

	tok, err := m.postToken(ctx, form)
	if err != nil {
		m.state = StateUnauthenticated
		return fmt.Errorf("token exchange failed: %w", err)
	}
	if tok.AccessToken == "" {
		m.state = StateUnauthenticated
		return ErrTokenExchangeFailed
	}

	m.cred = &session.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(tok.ExpiresIn) * time.Second).Unix(),
	}
	m.state = StateAuthorized

	if err := m.store.Save(m.cred); err != nil {
		log.WithError(err).Warn("failed to persist session")
	}
	log.Info("authorized, session saved")

	return nil
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	if m.cred == nil || m.cred.RefreshToken == "" {
		return ErrRefreshFailed
	}

	m.state = StateRefreshing

	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.cred.RefreshToken)

	tok, err := m.postToken(ctx, form)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return ErrRefreshFailed
	}

	// rotation is not guaranteed; keep the old refresh token unless the
	// response carries a new one
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = m.cred.RefreshToken
	}

	m.cred = &session.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    m.now().Add(time.Duration(tok.ExpiresIn) * time.Second).Unix(),
	}
	m.state = StateAuthorized

	if err := m.store.Save(m.cred); err != nil {
		log.WithError(err).Warn("failed to persist refreshed session")
	}
	log.Debug("access token refreshed")

	return nil
}

func (m *Manager) authorizeURL(challenge, redirectURI string) string {
	params := url.Values{}
	params.Set("client_id", m.clientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", m.scopes)
	params.Set("code_challenge_method", "S256")
	params.Set("code_challenge", challenge)
	return m.accountsURL + "/authorize?" + params.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// postToken calls the token endpoint with bounded fixed-delay retry.
// Only transport-level failures are retried: a well-formed error
// response is terminal for the attempt.
func (m *Manager) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	endpoint := m.accountsURL + "/api/token"

	var lastErr error
	for attempt := 0; attempt < m.retryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := m.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var tok tokenResponse
		if err := json.Unmarshal(body, &tok); err != nil {
			return nil, fmt.Errorf("failed to decode token response: %w", err)
		}
		return &tok, nil
	}

	return nil, fmt.Errorf("token endpoint unreachable after %d attempts: %w", m.retryLimit, lastErr)
}
