package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cull/internal/triage"
)

var resetCmd = &cobra.Command{
	Use:   "reset <folder>",
	Short: "Forget which images of a folder were already triaged",
	Long: "reset deletes the folder's session log so the next sort offers every image " +
		"in the folder again. Files already moved into Keep/, Discard/, or Maybe/ stay where they are.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a folder", dir)
		}

		lock, err := triage.AcquireFolderLock(dir)
		if err != nil {
			if errors.Is(err, triage.ErrFolderLocked) {
				return fmt.Errorf("%s is being sorted by another cull process", dir)
			}
			return err
		}
		defer lock.Release()

		log := triage.LoadSessionLog(dir, cfg.LogName, nil)
		n := log.Len()
		if err := log.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Forgot %d triaged files in %s\n", n, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
