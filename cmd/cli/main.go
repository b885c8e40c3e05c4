package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/whodunnit/cmd/cli/games"
	"github.com/myrjola/whodunnit/cmd/cli/img"
	"github.com/spf13/cobra"
	"os"
)

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(games.Group)
	rootCmd.AddCommand(games.Create)
	rootCmd.AddCommand(games.List)
	rootCmd.AddGroup(img.Group)
	rootCmd.AddCommand(img.Generate)
}

var rootCmd = &cobra.Command{
	Use:  "whodunnit-cli",
	Long: `Command line utilities for the whodunnit murder mystery server`,
	Run: func(cmd *cobra.Command, args []string) {
	},
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
