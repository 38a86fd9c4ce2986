package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/api"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for the HTTP API",
	Long:  "Prints an HS256 bearer token with the admin role, signed with server.jwt_secret.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject; recorded as the submitter of enqueued URLs")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Server.JWTSecret == "" {
		logger.Error("server.jwt_secret is not set")
		os.Exit(1)
	}

	tok, err := api.NewAuth(cfg.Server.JWTSecret).Mint(tokenSubject, tokenTTL)
	if err != nil {
		logger.Error("failed to mint token", "error", err)
		os.Exit(1)
	}
	fmt.Println(tok)
	return nil
}
