package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BitsJayMehta173/CurrentSpotify/internal/auth"
	"github.com/BitsJayMehta173/CurrentSpotify/internal/session"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "manage spotify authorization",
	Long:  `log in to spotify, inspect the stored session, or log out.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "authorize with spotify",
	Long:  `opens the spotify consent page in your browser and stores the resulting session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		setupLogging(cfg)

		manager := auth.NewManager(cfg, session.NewStore(cfg.SessionFile))

		fmt.Println("opening spotify consent page in your browser...")

		if _, err := manager.Token(context.Background()); err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}

		fmt.Println("authorized successfully")
		fmt.Printf("session saved to %s\n", cfg.SessionFile)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the stored session",
	Long:  `display whether a session exists and when its access token expires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		cred, err := session.NewStore(cfg.SessionFile).Load()
		if err != nil {
			fmt.Println("not logged in")
			fmt.Println("\nrun 'currentspotify auth login' to authorize")
			return nil
		}

		expiresAt := time.Unix(cred.ExpiresAt, 0)
		fmt.Printf("session file:  %s\n", cfg.SessionFile)
		fmt.Printf("expires:       %s\n", expiresAt.Format("2006-01-02 15:04:05"))
		if cred.Valid(time.Now()) {
			fmt.Printf("status:        valid (%s remaining)\n", time.Until(expiresAt).Round(time.Second))
		} else {
			fmt.Println("status:        expired (will refresh on next run)")
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "delete the stored session",
	Long:  `remove the saved session file; the next run will require a fresh browser login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)

		manager := auth.NewManager(cfg, session.NewStore(cfg.SessionFile))
		if err := manager.Logout(); err != nil {
			return fmt.Errorf("failed to remove session: %w", err)
		}

		fmt.Println("logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}
