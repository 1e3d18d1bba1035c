package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a learner's progress across the learning path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.progress.Status(cmd.Context(), learner)
		if err != nil {
			return err
		}
		renderStatus(cmd.OutOrStdout(), learner, statuses, a.progress.Machine().Config())
		return nil
	},
}

func init() {
	statusCmd.Flags().StringP("learner", "l", "default", "Learner ID")
}

func renderStatus(w io.Writer, learner string, statuses []progression.ModuleStatus, cfg progression.Config) {
	var b strings.Builder
	var points int
	for i, ms := range statuses {
		if i > 0 {
			b.WriteString("\n")
		}
		name := ms.Name
		if name == "" {
			name = ms.Module
		}
		fmt.Fprintf(&b, "%-22s %s  %s\n", name, theme.LevelBar(ms.Level, cfg.MaxLevel),
			theme.Badge(ms.Locked, ms.Complete, ms.Started))
		if ms.Started {
			fmt.Fprintf(&b, "  %d answered, %.0f%% correct, %d points", ms.Answered, ms.Accuracy, ms.Points)
		} else {
			b.WriteString(theme.Render(theme.Hint, "  no answers yet"))
		}
		points += ms.Points
	}

	fmt.Fprintln(w, theme.Render(theme.Title, "Progress for "+learner))
	fmt.Fprintln(w, theme.Render(theme.Card, b.String()))
	fmt.Fprintf(w, "Total points: %d\n", points)
}
