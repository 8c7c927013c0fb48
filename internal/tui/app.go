// Package tui renders a running onair server's playlist in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/onair/internal/document"
	"github.com/rivo/tview"
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to poll the server
	MaxInterval time.Duration // Poll interval cap while the server is unreachable
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 2 * time.Second,
		MaxInterval: 16 * time.Second,
	}
}

// Fetcher reads the playlist to display
type Fetcher interface {
	Fetch(ctx context.Context) (*Playlist, error)
}

// App is the TUI application for displaying the playlist
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	playlist   *tview.TextView
	status     *tview.TextView

	config  Config
	fetcher Fetcher
	server  string

	// Mutex protects state shared between the poll goroutine and draws
	mu      sync.Mutex
	current *Playlist
	lastErr error

	// Last-rendered content for change detection
	lastNowPlaying string
	lastPlaylist   string
	lastStatus     string

	cancelFunc context.CancelFunc
}

// New creates a new TUI application reading from fetcher
func New(cfg Config, fetcher Fetcher, server string) *App {
	a := &App{
		app:     tview.NewApplication(),
		config:  cfg,
		fetcher: fetcher,
		server:  server,
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.playlist = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.playlist.SetBorder(true).
		SetTitle(" Recently Played ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 7, 1, false).
		AddItem(a.playlist, 0, 3, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	}
	return event
}

// Run polls the server and blocks until the user quits or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)
	defer a.cancelFunc()

	go a.poll(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// poll fetches on a ticker, backing off while the server is unreachable
func (a *App) poll(ctx context.Context) {
	policy := a.newBackOff()
	interval := policy.base
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	next := func() time.Duration {
		if err := a.fetch(ctx); err != nil {
			return policy.NextBackOff()
		}
		policy.Reset()
		return policy.base
	}

	if n := next(); n != interval {
		interval = n
		ticker.Reset(interval)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := next(); n != interval {
				interval = n
				ticker.Reset(interval)
			}
		}
	}
}

// pollBackOff is the poll schedule after failed fetches. base is the
// interval while fetches succeed.
type pollBackOff struct {
	*backoff.ExponentialBackOff
	base time.Duration
}

// newBackOff doubles the poll interval on each consecutive failure, from
// twice RefreshRate up to MaxInterval
func (a *App) newBackOff() pollBackOff {
	base := a.config.RefreshRate
	if base <= 0 {
		base = DefaultConfig().RefreshRate
	}
	maxInterval := a.config.MaxInterval
	if maxInterval < base {
		maxInterval = base
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = min(2*base, maxInterval)
	exp.MaxInterval = maxInterval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	return pollBackOff{ExponentialBackOff: exp, base: base}
}

func (a *App) fetch(ctx context.Context) error {
	p, err := a.fetcher.Fetch(ctx)

	a.mu.Lock()
	if err == nil {
		a.current = p
	}
	a.lastErr = err
	a.mu.Unlock()

	a.refresh()
	return err
}

// refresh redraws every panel whose content changed
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		np, list, status := render(a.current, a.lastErr, a.server, time.Now())

		if np != a.lastNowPlaying {
			a.lastNowPlaying = np
			a.nowPlaying.SetText(np)
		}
		if list != a.lastPlaylist {
			a.lastPlaylist = list
			a.playlist.SetText(list)
		}
		if status != a.lastStatus {
			a.lastStatus = status
			a.status.SetText(status)
		}
	})
}

// render builds the panel texts for a playlist. A nil playlist means nothing
// has been fetched yet; err is the most recent fetch error.
func render(p *Playlist, err error, server string, now time.Time) (nowPlaying, playlist, status string) {
	if p == nil || len(p.Tracks) == 0 {
		nowPlaying = "\n\n[gray]Nothing playing[-]"
		playlist = "[gray]No recent tracks[-]"
	} else {
		nowPlaying = renderNowPlaying(p.Tracks[0])
		playlist = renderPlaylist(p.Tracks[1:])
	}

	switch {
	case err != nil:
		status = fmt.Sprintf("[red]%s unreachable[-]  [gray]q:quit[-]", tview.Escape(server))
	case p == nil:
		status = "[gray]Connecting...  q:quit[-]"
	case p.UpdatedAt.IsZero():
		status = "[gray]Waiting for first update  q:quit[-]"
	default:
		status = fmt.Sprintf("[gray]v%d  updated %s ago  q:quit[-]", p.Version, formatDuration(now.Sub(p.UpdatedAt)))
	}

	return nowPlaying, playlist, status
}

func renderNowPlaying(t document.Track) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(orUnknown(t.Name))))
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(orUnknown(t.Artist))))
	sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(orUnknown(t.Album))))
	if t.Duration > 0 {
		sb.WriteString(fmt.Sprintf("\n[gray]%s[-]", formatDuration(t.Duration)))
	}
	return sb.String()
}

func renderPlaylist(tracks []document.Track) string {
	if len(tracks) == 0 {
		return "[gray]No recent tracks[-]"
	}

	var sb strings.Builder
	for i, t := range tracks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[gray]%2d[-] [white]%s[-] [yellow]%s[-]",
			i+1, tview.Escape(truncate(orUnknown(t.Name), 40)), tview.Escape(orUnknown(t.Artist))))
	}
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// truncate shortens s to at most n runes with a trailing "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
