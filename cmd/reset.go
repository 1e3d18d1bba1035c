package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a learner's progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("this deletes all progress for %q; re-run with --yes", learner)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.progress.Reset(cmd.Context(), learner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %d modules for %s.\n", n, learner)
		return nil
	},
}

func init() {
	resetCmd.Flags().StringP("learner", "l", "default", "Learner ID")
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}
