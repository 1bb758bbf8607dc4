package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/sotopia-chat/cmd/cli/img"
	"github.com/myrjola/sotopia-chat/cmd/cli/profilecmd"
	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	// A missing .env file is fine, the environment can be set by other means.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(profilecmd.Group)
	rootCmd.AddCommand(profilecmd.Validate)
	rootCmd.AddCommand(profilecmd.List)
	rootCmd.AddCommand(profilecmd.RenderPrompt)
	rootCmd.AddGroup(img.Group)
	rootCmd.AddCommand(img.Portrait)
}

var rootCmd = &cobra.Command{ //nolint:exhaustruct // rest of the fields are optional
	Use:  "sotopia-cli",
	Long: `Command line utilities for Sotopia Chat https://github.com/myrjola/sotopia-chat`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
