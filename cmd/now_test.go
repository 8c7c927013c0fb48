package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/onair/internal/document"
	"github.com/mattn/go-runewidth"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "handle emoji correctly",
			input:    "🎵 Music",
			width:    15,
			expected: "🎵 Music       ", // emoji is 2 chars wide, so 8 total + 7 spaces
		},
		{
			name:     "truncate emoji text",
			input:    "🎵 This is a very long song title",
			width:    15,
			expected: "🎵 This is a...",
		},
		{
			name:     "handle unicode characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate unicode text",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ", // 日本語 is 6 chars, ... is 3, need 1 space
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "single character padding",
			input:    "A",
			width:    5,
			expected: "A    ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			// Verify the result has the expected display width (if width > 0)
			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	track := document.Track{
		ID:       "941366737",
		Name:     "Run",
		Artist:   "Foo Fighters",
		Album:    "Concrete and Gold",
		Genre:    "Rock",
		Duration: 323 * time.Second,
	}

	tests := []struct {
		name     string
		template string
		expected string
		wantErr  bool
	}{
		{
			name:     "default format",
			template: "{{.Artist}} - {{.Name}}",
			expected: "Foo Fighters - Run",
		},
		{
			name:     "all fields",
			template: "{{.ID}} {{.Name}} / {{.Album}} [{{.Genre}}] {{.Duration}}",
			expected: "941366737 Run / Concrete and Gold [Rock] 5m23s",
		},
		{
			name:     "invalid template",
			template: "{{.Name",
			wantErr:  true,
		},
		{
			name:     "unknown field",
			template: "{{.Position}}",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatTrack(track, tt.template)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("formatTrack: %v", err)
			}
			if got != tt.expected {
				t.Errorf("formatTrack() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestFormatTrack_MissingFields(t *testing.T) {
	got, err := formatTrack(document.Track{ID: "1"}, "{{.Artist}} - {{.Name}}")
	if err != nil {
		t.Fatalf("formatTrack: %v", err)
	}
	if strings.TrimSpace(got) != "-" {
		t.Errorf("expected empty fields, got %q", got)
	}
}

func TestPrintTracks(t *testing.T) {
	tracks := []document.Track{
		{ID: "1", Name: "Newest", Artist: "A"},
		{ID: "2", Name: "Older", Artist: "B"},
	}

	tests := []struct {
		name    string
		tracks  []document.Track
		format  string
		width   int
		all     bool
		want    string
		wantErr error
	}{
		{
			name:    "nothing on air",
			tracks:  nil,
			format:  "{{.Name}}",
			wantErr: errNothingOnAir,
		},
		{
			name:   "newest only",
			tracks: tracks,
			format: "{{.Artist}} - {{.Name}}",
			want:   "A - Newest\n",
		},
		{
			name:   "all tracks",
			tracks: tracks,
			format: "{{.Name}}",
			all:    true,
			want:   "Newest\nOlder\n",
		},
		{
			name:   "padded to width",
			tracks: tracks,
			format: "{{.Name}}",
			width:  8,
			want:   "Newest  \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printTracks(&buf, tt.tracks, tt.format, tt.width, tt.all)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("printTracks() error = %v, want %v", err, tt.wantErr)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("printTracks() wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintTracks_InvalidTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := printTracks(&buf, []document.Track{{ID: "1"}}, "{{.Name", 0, false)
	if err == nil || errors.Is(err, errNothingOnAir) {
		t.Errorf("expected template error, got %v", err)
	}
}
