// Package main is the talkbot command-line client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "talkbot",
	Short: "TalkBot terminal client",
	Long: `TalkBot is a chat assistant with an animated avatar. This client
chats with the TalkBot backend, renders avatars to PNG and manages the
signed-in session.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "TOML file with custom avatars to merge into the built-in catalogue")

	rootCmd.AddCommand(avatarsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(chatCmd)

	// Session commands
	rootCmd.AddCommand(signInCmd)
	rootCmd.AddCommand(signOutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(mintCmd)
}
