package cmd

import (
	"fmt"
	"os"

	"qrate/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qrate_server",
	Short: "QRate is a crowd-sourced DJ recommendation service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
