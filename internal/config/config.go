package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const (
	appDirName      = "currentspotify"
	sessionFileName = "session.json"
	lyricsDirName   = "lyrics"
)

type Config struct {
	// spotify application credentials and endpoints
	ClientID    string `envconfig:"SPOTIFY_CLIENT_ID" default:"6e275fbc81f14f50a9e34de55c7417c0"`
	AccountsURL string `envconfig:"SPOTIFY_ACCOUNTS_URL" default:"https://accounts.spotify.com"`
	APIBaseURL  string `envconfig:"SPOTIFY_API_URL" default:"https://api.spotify.com"`
	Scopes      string `envconfig:"SPOTIFY_SCOPES" default:"user-read-playback-state"`

	// authorization flow
	CallbackPort int           `envconfig:"CALLBACK_PORT" default:"8888"`
	AuthTimeout  time.Duration `envconfig:"AUTH_TIMEOUT" default:"60s"`

	// playback tracking
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	SeekThreshold time.Duration `envconfig:"SEEK_THRESHOLD" default:"1500ms"`
	RefreshMargin time.Duration `envconfig:"TOKEN_REFRESH_MARGIN" default:"60s"`

	// outbound http behavior
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"6s"`
	RetryLimit        int           `envconfig:"NETWORK_RETRY_LIMIT" default:"5"`
	RetryDelay        time.Duration `envconfig:"NETWORK_RETRY_DELAY" default:"1s"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" default:"4"`
	RequestBurst      int           `envconfig:"REQUEST_BURST" default:"4"`

	// lyrics source
	LrclibBaseURL string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net"`

	// local state; empty means the default locations under the user dirs
	SessionFile string `envconfig:"SESSION_FILE" default:""`
	LyricsDir   string `envconfig:"LYRICS_CACHE_DIR" default:""`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) and the environment. It never fails hard:
// an unparseable environment falls back to defaults with a warning so
// the tracker can always start.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Debug("no .env file loaded")
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		log.WithError(err).Warn("unable to process environment config, using defaults")
	}

	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}
	if cfg.LyricsDir == "" {
		cfg.LyricsDir = defaultLyricsDir()
	}

	return cfg
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", sessionFileName)
	}
	return filepath.Join(dir, appDirName, sessionFileName)
}

func defaultLyricsDir() string {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, appDirName, lyricsDirName)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", lyricsDirName)
	}
	return filepath.Join(homeDir, ".cache", appDirName, lyricsDirName)
}
