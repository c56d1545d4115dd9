package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cull/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cull",
	Short: "cull 📷 - sort a folder of photos into Keep, Discard, and Maybe",
	Long: "cull 📷 is a keyboard-driven photo triage tool. Files are moved (or copied) " +
		"into Keep/, Discard/, and Maybe/ subfolders in the background, and a log in the " +
		"folder lets an interrupted session pick up where it left off.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "preference file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", configPath, err)
	}
	return cfg, nil
}
