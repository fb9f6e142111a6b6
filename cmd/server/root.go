package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "insta-autoreply",
	Short: "Keyword-triggered auto replies for Instagram DMs and comments",
	// Running the binary without a subcommand starts the server
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&migrateOnStart, "migrate", false, "apply schema migrations before serving")
}
