package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/store"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  `manage cached lyrics data, including viewing statistics, listing entries, and clearing the cache.`,
}

func openCache(cmd *cobra.Command) (*store.Cache, error) {
	cfg := loadConfig(cmd)
	cache, err := store.NewCache(cfg.LyricsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open lyrics cache: %w", err)
	}
	return cache, nil
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(cmd)
		if err != nil {
			return err
		}

		count, sizeBytes, err := cache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", cache.Path())
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))

		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached songs",
	Long:  `list all songs in the cache with the kind of lyrics each one holds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(cmd)
		if err != nil {
			return err
		}

		entries, err := cache.List()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		// display as table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tLYRICS")

		for _, entry := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Artist, entry.Title, describeLyrics(entry))
		}

		w.Flush()

		fmt.Printf("\ntotal: %d songs\n", len(entries))

		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "show cached entry for specific song",
	Long:  `display detailed information about a cached song including its lyrics.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := args[0]
		title := args[1]

		cache, err := openCache(cmd)
		if err != nil {
			return err
		}

		entry, err := cache.Get(artist, title)
		if err != nil {
			suggestions := findSimilarCachedSongs(cache, artist, title)
			if len(suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "song not found in cache\n\n")
				fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
				for _, s := range suggestions {
					fmt.Fprintf(os.Stderr, "  %s - %s\n", s.Artist, s.Title)
				}
				return fmt.Errorf("")
			}
			return fmt.Errorf("song not found in cache: %w", err)
		}

		fmt.Printf("artist:  %s\n", entry.Artist)
		fmt.Printf("title:   %s\n", entry.Title)

		if entry.HasTimed {
			fmt.Printf("\nsynced lyrics: %d lines\n", len(entry.TimedLyrics))
			for _, line := range entry.TimedLyrics {
				fmt.Printf("  [%s] %s\n", line.Time, line.Text)
			}
		} else if entry.PlainLyrics != "" {
			lines := strings.Split(entry.PlainLyrics, "\n")
			fmt.Printf("\nplain lyrics: %d lines (no sync data)\n", len(lines))
			fmt.Println(entry.PlainLyrics)
		} else {
			fmt.Println("\nno lyrics available")
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics data. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(cmd)
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		if err := cache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove specific song from cache",
	Long:  `remove a specific song from the cache by artist and title.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := args[0]
		title := args[1]

		cache, err := openCache(cmd)
		if err != nil {
			return err
		}

		// verify it exists first
		if _, err := cache.Get(artist, title); err != nil {
			suggestions := findSimilarCachedSongs(cache, artist, title)
			if len(suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "song not found in cache\n\n")
				fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
				for _, s := range suggestions {
					fmt.Fprintf(os.Stderr, "  %s - %s\n", s.Artist, s.Title)
				}
				return fmt.Errorf("")
			}
			return fmt.Errorf("song not found in cache")
		}

		if err := cache.Delete(artist, title); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted '%s - %s' from cache\n", artist, title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	// flags for cache list
	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "artist", "sort by: artist, title")

	// flags for cache clear
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// helper functions

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func describeLyrics(rec *store.Record) string {
	switch {
	case rec.HasTimed:
		return fmt.Sprintf("synced (%d lines)", len(rec.TimedLyrics))
	case rec.PlainLyrics != "":
		return "plain only"
	default:
		return "none"
	}
}

func sortCacheEntries(entries []*store.Record, by string) {
	switch by {
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			a, b := strings.ToLower(entries[i].Artist), strings.ToLower(entries[j].Artist)
			if a != b {
				return a < b
			}
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		})
	}
}

func findSimilarCachedSongs(cache *store.Cache, artist, title string) []*store.Record {
	entries, err := cache.List()
	if err != nil {
		return nil
	}

	wanted := artist + " " + title
	var similar []*store.Record
	for _, entry := range entries {
		key := entry.Artist + " " + entry.Title
		if fuzzy.MatchNormalizedFold(artist, key) || fuzzy.MatchNormalizedFold(title, key) ||
			fuzzy.LevenshteinDistance(strings.ToLower(wanted), strings.ToLower(key)) <= len(wanted)/2 {
			similar = append(similar, entry)
		}
		if len(similar) >= 5 {
			break
		}
	}
	return similar
}
