package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/lyrics"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/store"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/track"
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and management",
	Long:  `search for lyrics, pre-fetch to cache, or preview lyrics in the terminal.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "search for lyrics on lrclib",
	Long:  `search lrclib.net and list the matching tracks with their lyric availability.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		query := strings.Join(args, " ")

		client := lyrics.NewClient(cfg.LrclibBaseURL, cfg.HTTPTimeout)
		candidates, err := client.Search(context.Background(), query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(candidates) == 0 {
			fmt.Println("no matches found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tARTIST\tTITLE\tALBUM")
		for _, c := range candidates {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Artist, c.Title, c.Album)
		}
		w.Flush()

		fmt.Printf("\ntotal: %d matches\n", len(candidates))
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <artist> <title>",
	Short: "pre-fetch and cache lyrics",
	Long:  `resolve lyrics for a song and save them to the local cache for instant loading.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		setupLogging(cfg)

		cache, err := store.NewCache(cfg.LyricsDir)
		if err != nil {
			return fmt.Errorf("failed to open lyrics cache: %w", err)
		}

		resolver := lyrics.NewResolver(cache, lyrics.NewClient(cfg.LrclibBaseURL, cfg.HTTPTimeout), nil)
		resolver.SetSkipCache(noCache)

		trk := track.Info{Artists: []string{args[0]}, Title: args[1]}
		fmt.Printf("fetching: %s\n", trk.Key())

		outcome := resolver.Resolve(context.Background(), trk)
		switch outcome.Status {
		case lyrics.StatusLoaded:
			fmt.Printf("cached successfully: %d synced lines\n", len(outcome.Record.TimedLyrics))
		case lyrics.StatusPlainOnly:
			fmt.Println("cached successfully: only plain lyrics available (no timing)")
		case lyrics.StatusNotFound:
			return fmt.Errorf("no lyrics available for this song")
		default:
			return fmt.Errorf("failed to fetch lyrics: %w", outcome.Err)
		}
		return nil
	},
}

var lyricsShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "preview lyrics in terminal",
	Long:  `display lyrics in the terminal with timestamps (if available), fetching them if not cached.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		setupLogging(cfg)

		cache, err := store.NewCache(cfg.LyricsDir)
		if err != nil {
			return fmt.Errorf("failed to open lyrics cache: %w", err)
		}

		resolver := lyrics.NewResolver(cache, lyrics.NewClient(cfg.LrclibBaseURL, cfg.HTTPTimeout), nil)
		resolver.SetSkipCache(noCache)

		trk := track.Info{Artists: []string{args[0]}, Title: args[1]}
		outcome := resolver.Resolve(context.Background(), trk)

		switch outcome.Status {
		case lyrics.StatusLoaded:
			fmt.Printf("%s\n\n", trk.Key())
			for _, line := range outcome.Record.TimedLyrics {
				fmt.Printf("[%s] %s\n", line.Time, line.Text)
			}
		case lyrics.StatusPlainOnly:
			fmt.Printf("%s (plain lyrics, no timing)\n\n", trk.Key())
			fmt.Println(outcome.Record.PlainLyrics)
		case lyrics.StatusNotFound:
			return fmt.Errorf("no lyrics available for this song")
		default:
			return fmt.Errorf("failed to fetch lyrics: %w", outcome.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsShowCmd)
}
