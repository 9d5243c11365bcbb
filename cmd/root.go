package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/transcript-sync/pkg/config"
	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "transcript-sync",
	Short: "Transcript region synchronization server and client",
	Long: `Transcript Sync - collaborative editing of time-aligned transcripts

Keeps every editor's local copy of a transcript's regions consistent with a
shared store while edits happen optimistically on each side.

Features:
  • Region storage with logical write timestamps
  • Snapshot push over server-sent events (in-process or Redis fan-out)
  • Debounced optimistic writes with per-region single flight
  • Remote merge with echo and staleness rejection
  • Issue annotations kept anchored to edited text`,
	SilenceUsage:      true,
	PersistentPreRunE: initCommand,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config/settings.yaml)")

	// Add persistent flags for logging configuration
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// initCommand sets up logging and loads the configuration for commands
// that need it
func initCommand(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	if err := setupLogging(cmd.ErrOrStderr(), level, jsonLogs); err != nil {
		return err
	}

	// Version and help need no configuration
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	config.SetConfigFile(configFile)
	if err := config.Load(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
