package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/abhisek/cyberguard/internal/grading"
)

// errGradeFailed signals a non-zero exit after the error object was
// already written to stdout.
var errGradeFailed = errors.New("grading failed")

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade one JSON request from stdin and write the result to stdout",
	Long: `Read {"question", "userAnswers", "blanks", "correctAnswers"} from stdin and
write {"blanks": [...], "overall": ...} to stdout. Exits 1 on any error.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, logger, err := setup(cmd)
		if err != nil {
			_ = grading.EncodeError(out, err)
			return errGradeFailed
		}
		g := newGrader(cmd.Context(), cfg, logger)
		if code := grading.Serve(cmd.Context(), g, cmd.InOrStdin(), out); code != 0 {
			return errGradeFailed
		}
		return nil
	},
}
