// Package launchd installs onair serve as a macOS launch agent.
package launchd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

// Label identifies the agent to launchctl
const Label = "com.onair.server"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
		<string>serve</string>
		<string>--log-file</string>
		<string>{{.LogPath}}/onair.log</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}/onair.out</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/onair.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

// PlistConfig holds the configuration for generating a launchd plist
type PlistConfig struct {
	Label            string // Defaults to Label
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
}

// GeneratePlist generates a launchd plist file from the template
func GeneratePlist(config PlistConfig) (string, error) {
	if config.Label == "" {
		config.Label = Label
	}
	if config.BinaryPath == "" {
		return "", fmt.Errorf("binary path is required")
	}

	tmpl, err := template.New("plist").Parse(plistTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute plist template: %w", err)
	}

	return buf.String(), nil
}

// GetPlistPath returns the path where the plist should be installed
func GetPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
}

// GetDefaultLogPath returns the default path for server logs
func GetDefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "onair", "logs"), nil
}

// Install writes the plist for config to plistPath and loads it. An agent
// that is already installed is unloaded first and replaced is true; warning
// carries launchctl's output from that unload.
func Install(plistPath string, config PlistConfig) (replaced bool, warning string, err error) {
	content, err := GeneratePlist(config)
	if err != nil {
		return false, "", fmt.Errorf("failed to generate plist: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return false, "", fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	if _, err := os.Stat(plistPath); err == nil {
		replaced = true
		if warning, err = Bootout(); err != nil {
			return replaced, "", fmt.Errorf("failed to unload agent: %w", err)
		}
	}

	if err := os.WriteFile(plistPath, []byte(content), 0644); err != nil {
		return replaced, warning, fmt.Errorf("failed to write plist file: %w", err)
	}

	if err := Bootstrap(plistPath); err != nil {
		return replaced, warning, fmt.Errorf("failed to load agent: %w", err)
	}

	return replaced, warning, nil
}

// Uninstall unloads the agent and removes plistPath. installed is false, and
// nothing is done, when there is no plist.
func Uninstall(plistPath string) (installed bool, warning string, err error) {
	if _, err := os.Stat(plistPath); os.IsNotExist(err) {
		return false, "", nil
	}

	warning, err = Bootout()
	if err != nil {
		return true, "", fmt.Errorf("failed to unload agent: %w", err)
	}

	if err := os.Remove(plistPath); err != nil {
		return true, warning, fmt.Errorf("failed to remove plist file: %w", err)
	}

	return true, warning, nil
}

// run executes a command and returns its combined output
var run = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Bootstrap loads the agent at plistPath into the user's GUI domain
func Bootstrap(plistPath string) error {
	domain, err := userDomain()
	if err != nil {
		return err
	}

	output, err := run("launchctl", "bootstrap", domain, plistPath)
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("launchctl bootstrap failed: %s", msg)
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}

	return nil
}

// Bootout unloads the agent. launchctl's output is returned as a warning
// because bootout fails when the agent is not loaded.
func Bootout() (warning string, err error) {
	domain, err := userDomain()
	if err != nil {
		return "", err
	}

	output, err := run("launchctl", "bootout", domain+"/"+Label)
	if err != nil {
		return strings.TrimSpace(string(output)), nil
	}

	return "", nil
}

// userDomain returns the launchctl domain of the current user
func userDomain() (string, error) {
	output, err := run("id", "-u")
	if err != nil {
		return "", fmt.Errorf("failed to get user ID: %w", err)
	}

	return "gui/" + strings.TrimSpace(string(output)), nil
}
