package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List question bank modules and their syllabus topics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		bank, err := loadBank(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-22s  %-28s  %9s  %s\n", "ID", "Name", "Questions", "Topics")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, c := range bank.Categories() {
			fmt.Fprintf(out, "%-22s  %-28s  %9d  %s\n",
				c.ID, truncate(c.Name, 28), len(c.Questions), strings.Join(c.Topics(), ", "))
		}
		fmt.Fprintf(out, "\nBank version %s, learning path: %s\n", bank.Version(), strings.Join(cfg.Modules, " → "))
		return nil
	},
}
