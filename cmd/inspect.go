package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cull/internal/preview"
	"cull/internal/tui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Print the metadata panel for images without sorting them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for i, path := range args {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			p := preview.Describe(path)
			fmt.Fprintf(os.Stdout, "%s  %s\n",
				inspectFileStyle.Render(p.Path),
				inspectDimStyle.Render(fmt.Sprintf("(%s, %s)", p.Kind, p.SizeText())),
			)
			if p.Err != nil {
				failed++
				fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectErrorStyle.Render(p.Err.Error()))
				continue
			}
			if len(p.Fields) > 0 {
				fmt.Fprintf(os.Stdout, "  %s\n", inspectCategoryStyle.Render("Metadata:"))
				for _, f := range p.Fields {
					fmt.Fprintf(os.Stdout, "    %s %s %s\n",
						inspectBulletStyle.Render("-"),
						inspectDimStyle.Render(fmt.Sprintf("%-14s", f.Label)),
						inspectValueStyle.Render(f.Value),
					)
				}
			}
			if p.Note != "" {
				fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectDimStyle.Render(p.Note))
			}
			if len(p.Insights) > 0 {
				fmt.Fprintf(os.Stdout, "  %s\n", inspectCategoryStyle.Render("Reveals:"))
				for _, in := range p.Insights {
					fmt.Fprintf(os.Stdout, "    %s %s\n",
						inspectBulletStyle.Render("-"),
						inspectValueStyle.Render(in.Kind+": "+in.Message),
					)
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be read", failed, len(args))
		}
		return nil
	},
}

var (
	inspectFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.DarkTheme.Highlight)
	inspectCategoryStyle = lipgloss.NewStyle().Foreground(tui.DarkTheme.Maybe)
	inspectValueStyle    = lipgloss.NewStyle().Foreground(tui.DarkTheme.ExifFg)
	inspectDimStyle      = lipgloss.NewStyle().Foreground(tui.DarkTheme.TextDim)
	inspectBulletStyle   = lipgloss.NewStyle().Foreground(tui.DarkTheme.TextDim)
	inspectErrorStyle    = lipgloss.NewStyle().Foreground(tui.DarkTheme.Discard)
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}
