package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"cull/internal/config"
	"cull/internal/logging"
	"cull/internal/triage"
	"cull/internal/tui"
)

var (
	sortStrategy string
	sortTheme    string
	sortNoDrain  bool
)

var sortCmd = &cobra.Command{
	Use:   "sort [flags] <folder>",
	Short: "Triage the images in a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
			return errors.New("sort needs an interactive terminal")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("strategy") {
			cfg.Strategy = sortStrategy
		}
		if cmd.Flags().Changed("theme") {
			cfg.Theme = sortTheme
		}
		if sortNoDrain {
			cfg.DrainOnExit = false
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, closeLog, err := logging.Setup(cfg.Logging)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
			logger, closeLog = logging.NullLogger(), func() error { return nil }
		}
		defer closeLog()

		queue := triage.NewQueue(logger)
		session := triage.NewSession(queue, cfg.SessionConfig(), logger)

		res, err := session.LoadFolder(args[0])
		if err != nil {
			_, _ = session.Close(context.Background())
			return err
		}
		if res.Outcome != triage.OutcomeReady {
			_, _ = session.Close(context.Background())
			fmt.Fprintln(os.Stdout, res.Outcome.String())
			return nil
		}

		model := tui.NewModel(session, queue.Events(), tui.Options{
			Theme:   tui.ThemeByName(cfg.Theme),
			OnTheme: func(t tui.Theme) { saveTheme(t, logger) },
		})
		program := tea.NewProgram(model, tea.WithAltScreen())
		final, runErr := program.Run()

		theme := tui.ThemeByName(cfg.Theme)
		if m, ok := final.(tui.Model); ok {
			theme = m.Theme()
		}
		styles := tui.NewStyles(theme)

		if pending := session.PendingWriteCount(); pending > 0 && cfg.DrainOnExit {
			fmt.Fprintln(os.Stdout, styles.Dim.Render(fmt.Sprintf("Finishing %d file writes (Ctrl+C to abandon)...", pending)))
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		dropped, closeErr := session.Close(ctx)

		done, failed := queue.Stats()
		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.SessionSummary(session.Snapshot(), done, failed, dropped), styles))
		if dropped > 0 {
			fmt.Fprintln(os.Stdout, styles.Error.Render(fmt.Sprintf(
				"%d file writes were abandoned. Their files are still in %s; run `cull sort` again to triage them.",
				dropped, session.Folder())))
		}
		if failed > 0 {
			fmt.Fprintln(os.Stdout, lipgloss.NewStyle().Foreground(theme.Maybe).Render(
				fmt.Sprintf("%d file writes failed; see %s for details.", failed, cfg.Logging.File)))
		}

		return errors.Join(runErr, closeErr)
	},
}

// saveTheme persists a theme toggle without carrying command-line overrides
// into the preference file.
func saveTheme(t tui.Theme, logger *slog.Logger) {
	prefs, err := config.Load(configPath)
	if err != nil {
		prefs = config.Default()
	}
	prefs.Theme = t.Name
	if err := config.Save(configPath, prefs); err != nil {
		logger.Warn("failed to save theme", slog.String("path", configPath), slog.Any("error", err))
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func init() {
	sortCmd.Flags().StringVar(&sortStrategy, "strategy", "move", "how files reach their folder: move or copy")
	sortCmd.Flags().StringVar(&sortTheme, "theme", "dark", "colour theme: dark or light")
	sortCmd.Flags().BoolVar(&sortNoDrain, "no-drain", false, "abandon queued file writes on exit instead of finishing them")
	rootCmd.AddCommand(sortCmd)
}
