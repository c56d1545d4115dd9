package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cull/internal/triage"
	"cull/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status <folder>",
	Short: "Show how far triage of a folder has got",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := triage.InspectFolder(args[0], cfg.LogName, nil)
		if err != nil {
			return err
		}

		rows := []tui.SummaryRow{
			{Label: "Folder", Value: st.Folder},
			{Label: "Session log", Value: st.LogPath},
			{Label: "Images in folder", Value: fmt.Sprintf("%d", st.Images)},
			{Label: "Already triaged", Value: fmt.Sprintf("%d", st.Triaged)},
			{Label: "Still to sort", Value: fmt.Sprintf("%d (%s)", st.Pending, humanize.Bytes(uint64(st.PendingBytes)))},
		}
		for _, a := range triage.Actions {
			rows = append(rows, tui.SummaryRow{
				Label: "In " + a.Dir() + "/",
				Value: fmt.Sprintf("%d", st.ByAction[a]),
			})
		}
		styles := tui.NewStyles(tui.ThemeByName(cfg.Theme))
		fmt.Fprintln(os.Stdout, tui.RenderSummary(rows, styles))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
