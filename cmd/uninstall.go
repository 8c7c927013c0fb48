package cmd

import (
	"fmt"

	"github.com/jfmyers9/onair/internal/launchd"
	"github.com/spf13/cobra"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the onair launch agent",
	Long: `Stop the onair server launch agent and remove its plist from
~/Library/LaunchAgents/. The server no longer starts on login afterwards.`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	plistPath, err := launchd.GetPlistPath()
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}

	installed, warning, err := launchd.Uninstall(plistPath)
	if err != nil {
		return err
	}
	if !installed {
		fmt.Println("onair is not installed")
		return nil
	}
	if warning != "" {
		fmt.Printf("Warning: %s\n", warning)
	}

	fmt.Printf("✓ Stopped the server and removed %s\n", plistPath)
	fmt.Println("Run 'onair install' to reinstall.")
	return nil
}
