package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "holiday",
	Short:         "Holiday themed image generator",
	Long:          `Expands a short idea into a holiday themed DALL-E prompt, generates the image and files it under your Pictures folder.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json, toml or env)")

	rootCmd.AddCommand(holidaysCmd, generateCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
