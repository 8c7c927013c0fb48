/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "onair",
	Short: "Live now-playing playlist server",
	Long: `onair follows a radio station's now-playing feed and serves it as a
relationship-linked playlist of songs, artists and albums.

It keeps a push connection open to the station's notification endpoint,
re-reads the feed whenever it changes, resolves every track through the
iTunes lookup service, and serves the latest result over HTTP.

It also provides a CLI command to print the current track, useful for
tmux status lines or other status bars.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
