// Package cmd provides the meshbroker-demo command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "meshbroker-demo",
	Short: "Exercise the meshbroker client-side broker against a peer set",
	Long:  `A demo harness for registering clients on the client-side broker and watching routed and published traffic.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (built-in defaults when unset)")
	rootCmd.AddCommand(runCmd)
}
