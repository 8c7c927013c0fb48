package cmd

import (
	"context"
	"fmt"

	"github.com/jfmyers9/onair/internal/config"
	"github.com/jfmyers9/onair/internal/tui"
	"github.com/spf13/cobra"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Display a terminal UI for the live playlist",
	Long: `Display a terminal-based user interface showing the playlist served by a
running 'onair serve'.

The TUI includes:
- The track currently on air with artist, album and length
- The rest of the recently played list
- Publish version and age of the playlist

Press 'q' to quit.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().String("server", "", "Server URL (default: http://<server.addr>)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = "http://" + cfg.Server.Addr
	}

	client, err := tui.NewClient(server, nil)
	if err != nil {
		return err
	}

	app := tui.New(tui.DefaultConfig(), client, server)
	return app.Run(context.Background())
}
