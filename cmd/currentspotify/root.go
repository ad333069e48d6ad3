package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// global flags
	pollInterval  time.Duration
	seekThreshold time.Duration
	lrclibURL     string
	noCache       bool
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "currentspotify",
	Short: "terminal tracker for the song currently playing on spotify",
	Long: `currentspotify follows your spotify playback from the terminal and
shows time-synced lyrics for the current song.

it authorizes against the spotify web api with a one-time browser
login, polls the currently-playing endpoint, and fetches lyrics from
lrclib.net, caching them locally for instant reloads.

when run without a subcommand, it starts the tracker.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		// default behavior: run the tracker
		return runTracker(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVarP(&pollInterval, "poll-interval", "p", 0, "playback poll interval (e.g. 500ms)")
	rootCmd.PersistentFlags().DurationVar(&seekThreshold, "seek-threshold", 0, "progress jump treated as a manual seek (e.g. 1500ms)")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable cache reads (always fetch fresh)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log verbosity: debug, info, warn, error")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
