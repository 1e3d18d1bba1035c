package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:   "notes [module]",
	Short: "Print generated study notes for a module",
	Long: `Print the HTML study guide for a module, generating it on first use.
With --all, pre-generate notes for every module in the learning path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return errors.New("give a module or --all, not both")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if all {
			modules := a.progress.Modules()
			if err := a.notes.Warm(cmd.Context(), modules); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notes ready for %d modules.\n", len(modules))
			return nil
		}

		html, err := a.notes.Notes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), html)
		return nil
	},
}

func init() {
	notesCmd.Flags().Bool("all", false, "Pre-generate notes for every module")
}
