package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

var ErrNoSession = errors.New("no saved session")

// Credential is the access/refresh token pair persisted between runs.
// A credential is valid while now < ExpiresAt; anything else must be
// refreshed before use.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return now.Unix() < c.ExpiresAt
}

// ExpiresWithin reports whether the credential expires inside the given
// margin, i.e. it is due for a proactive refresh.
func (c *Credential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if c == nil {
		return true
	}
	return now.Add(margin).Unix() >= c.ExpiresAt
}

// Store persists a single credential as one JSON file. The lifecycle
// manager is the only writer.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns ErrNoSession for a missing or unreadable file. Corruption
// is treated exactly like absence so a bad file can never block startup.
func (s *Store) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, ErrNoSession
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, ErrNoSession
	}
	if cred.AccessToken == "" || cred.RefreshToken == "" {
		return nil, ErrNoSession
	}

	return &cred, nil
}

// Save writes via a temp file and rename so a crash mid-write never
// leaves a partial session behind.
func (s *Store) Save(cred *Credential) error {
	if cred == nil {
		return errors.New("nil credential")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
