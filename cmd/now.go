/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/onair/internal/config"
	"github.com/jfmyers9/onair/internal/document"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track currently on air",
	Long: `Run the playlist pipeline once and display the track currently on air.

The output format can be customized in ~/.config/onair/config.yaml
using a Go template. Available fields: .ID, .Name, .Artist, .Album, .Genre, .Duration

Exit codes:
  0 - A track is on air
  1 - The feed is empty or an upstream failed`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag to override config
	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("static", false, "Use the pre-recorded now-playing list instead of the live feed")
	nowCmd.Flags().BoolP("all", "a", false, "Print every track in the feed, most recent first")
}

func runNow(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Check for flag overrides
	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}
	if static, _ := cmd.Flags().GetBool("static"); static {
		cfg.Source = config.SourceStatic
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout+5*time.Second)
	defer cancel()

	p, err := buildPipeline(cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer p.Close()

	doc, err := p.aggregator.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to build playlist: %w", err)
	}

	all, _ := cmd.Flags().GetBool("all")

	// Apply width padding if requested
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	err = printTracks(cmd.OutOrStdout(), doc.Tracks(), cfg.OutputFormat, width, all)
	if errors.Is(err, errNothingOnAir) {
		// Exit code 1 without an error message
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
	}
	return err
}

// errNothingOnAir is returned when the feed resolves to no songs
var errNothingOnAir = errors.New("nothing on air")

// printTracks writes the newest track, or every track when all is set, one
// formatted line each
func printTracks(w io.Writer, tracks []document.Track, format string, width int, all bool) error {
	if len(tracks) == 0 {
		return errNothingOnAir
	}
	if !all {
		tracks = tracks[:1]
	}

	for _, track := range tracks {
		output, err := formatTrack(track, format)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Fprintln(w, padToWidth(output, width))
	}
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track document.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)
	if currentWidth == width {
		return text
	}
	if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	ellipsis := "..."
	if width <= runewidth.StringWidth(ellipsis) {
		return runewidth.Truncate(ellipsis, width, "")
	}

	// Truncate leaves wide runes out whole, so pad back up to width
	result := runewidth.Truncate(text, width, ellipsis)
	if resultWidth := runewidth.StringWidth(result); resultWidth < width {
		result += strings.Repeat(" ", width-resultWidth)
	}
	return result
}
