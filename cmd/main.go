// AutoInput - automated key and mouse input with schedules and sequences.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	xlog "autoinput/internal/log"
)

var version = "1.0.0"

var (
	cfgPath  string
	logLevel string
	pretty   bool
)

var rootCmd = &cobra.Command{
	Use:           "autoinput",
	Short:         "Automated key and mouse input with schedules and sequences",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := xlog.ParseLevel(logLevel); err != nil {
			return err
		}
		xlog.Configure(xlog.Config{Level: logLevel, Pretty: pretty, Version: version})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "autoinput version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: per-user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable log output")
	rootCmd.AddCommand(versionCmd)
	addRunFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
