package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/user/braingate/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "braingate",
	Short: "Slack gateway for a remote conversational agent",
	Long: "braingate bridges Slack and a remote agent runtime: it verifies and " +
		"deduplicates Slack events, serializes turns per conversation thread, and " +
		"posts the agent's replies back into the originating thread.",
}

func init() {
	defaultPath := filepath.Join(os.Getenv("HOME"), ".braingate", "config.json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "config file path")
}

// loadConfig loads the config file or exits. Commands that need config call
// this after flag parsing.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
