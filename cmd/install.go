package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jfmyers9/onair/internal/launchd"
	"github.com/spf13/cobra"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Run the onair server as a launch agent",
	Long: `Install 'onair serve' as a launchd agent in ~/Library/LaunchAgents/ and
start it. The agent starts on login and keeps the playlist on
http://<server.addr>/api/songs up to date. Logs go to
~/.local/share/onair/logs/.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath, err := launchd.GetDefaultLogPath()
	if err != nil {
		return fmt.Errorf("failed to get log path: %w", err)
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	plistPath, err := launchd.GetPlistPath()
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}

	replaced, warning, err := launchd.Install(plistPath, launchd.PlistConfig{
		BinaryPath:       binaryPath,
		LogPath:          logPath,
		WorkingDirectory: home,
	})
	if err != nil {
		return err
	}
	if warning != "" {
		fmt.Printf("Warning: %s\n", warning)
	}
	if replaced {
		fmt.Println("✓ Replaced the previous installation")
	}

	fmt.Printf("✓ Installed %s and started the server\n", plistPath)
	fmt.Printf("✓ Logs are written to %s\n", logPath)
	fmt.Println("Check it with 'launchctl list | grep onair'; remove it with 'onair uninstall'.")
	return nil
}
