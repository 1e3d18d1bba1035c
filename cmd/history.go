package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cyberguard/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent graded answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openEventStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryGradingEvents(cmd.Context(), store.QueryOpts{Learner: learner, Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No graded answers found.")
			return nil
		}

		fmt.Fprintf(out, "%-19s  %-12s  %-20s  %-10s  %-7s  %6s  %s\n",
			"Timestamp", "Learner", "Module", "Question", "Level", "Points", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 92))
		for _, e := range events {
			ok := "✓"
			if !e.Correct {
				ok = "✗"
			}
			fmt.Fprintf(out, "%-19s  %-12s  %-20s  %-10s  %-7s  %6d  %s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.LearnerID, 12),
				truncate(e.ModuleID, 20),
				truncate(e.QuestionID, 10),
				fmt.Sprintf("%d→%d", e.LevelBefore, e.LevelAfter),
				e.PointsAwarded,
				ok,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringP("learner", "l", "", "Only show this learner (default: all)")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
}
