package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoinput/internal/autostart"
)

func init() {
	rootCmd.AddCommand(autostartCmd)
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage starting AutoInput at login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start AutoInput at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runArgs := []string{"run"}
		if cfgPath != "" {
			runArgs = append(runArgs, "--config", cfgPath)
		}
		if err := autostart.Enable(runArgs...); err != nil {
			return fmt.Errorf("enable autostart: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Autostart enabled")
		return nil
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop starting AutoInput at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := autostart.Disable(); err != nil {
			return fmt.Errorf("disable autostart: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Autostart disabled")
		return nil
	},
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether autostart is enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state := "disabled"
		if autostart.IsEnabled() {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Autostart %s\n", state)
		return nil
	},
}
