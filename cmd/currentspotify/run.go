package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/app"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/auth"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/config"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/lyrics"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/session"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/spotify"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/store"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/terminal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the playback tracker",
	Long:  `starts the terminal tracker with real-time synchronized lyrics display.`,
	RunE:  runTracker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// loadConfig builds the effective config: environment first, then any
// flags the user actually set.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()

	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval = pollInterval
	}
	if cmd.Flags().Changed("seek-threshold") {
		cfg.SeekThreshold = seekThreshold
	}
	if lrclibURL != "" {
		cfg.LrclibBaseURL = lrclibURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
}

func runTracker(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		cancel()
		terminal.Reset()
	}()

	defer terminal.Reset()

	cfg := loadConfig(cmd)
	setupLogging(cfg)

	manager := auth.NewManager(cfg, session.NewStore(cfg.SessionFile))
	player := spotify.NewClient(cfg)

	cache, err := store.NewCache(cfg.LyricsDir)
	if err != nil {
		return fmt.Errorf("failed to open lyrics cache: %w", err)
	}

	resolver := lyrics.NewResolver(cache, lyrics.NewClient(cfg.LrclibBaseURL, cfg.HTTPTimeout), nil)
	resolver.SetSkipCache(noCache)

	tracker := app.New(cfg, manager, player, resolver, os.Stdout)

	if err := tracker.Run(ctx); err != nil {
		return fmt.Errorf("tracker stopped: %w", err)
	}

	return nil
}
