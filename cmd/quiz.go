package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/tutor"
	"github.com/abhisek/cyberguard/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Practice a module interactively",
	Long: `Answer one question at a time. Separate multiple blanks with "|".
Other commands: "doubt <text>" asks the tutor, "start" repeats the current
question, "quit" leaves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		module, _ := cmd.Flags().GetString("module")
		topic, _ := cmd.Flags().GetString("topic")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if module == "" {
			module, err = nextModule(cmd.Context(), a.progress, learner)
			if err != nil {
				return err
			}
		} else if err := checkUnlocked(cmd.Context(), a.progress, learner, module); err != nil {
			return err
		}

		return runQuiz(cmd.Context(), a, progression.Key{Learner: learner, Module: module}, topic, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	quizCmd.Flags().StringP("learner", "l", "default", "Learner ID")
	quizCmd.Flags().StringP("module", "m", "", "Module ID (default: first unlocked incomplete module)")
	quizCmd.Flags().StringP("topic", "t", "", "Prefer questions on this syllabus topic")
}

func runQuiz(ctx context.Context, a *app, k progression.Key, topic string, in io.Reader, out io.Writer) error {
	turn, err := a.tutor.Start(ctx, k, topic)
	if err != nil {
		return err
	}
	cat, _ := a.bank.Category(k.Module)
	fmt.Fprintln(out, theme.Render(theme.Title, tutor.Welcome(cat, turn.State, a.progress.Machine().Config())))
	printQuestion(out, turn)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			fmt.Fprintf(out, "Goodbye! Level %d, %d points.\n", turn.State.Level, turn.State.Points)
			return nil
		case line == "start":
			if turn, err = a.tutor.Start(ctx, k, topic); err != nil {
				return err
			}
			printQuestion(out, turn)
			continue
		case line == "doubt" || strings.HasPrefix(line, "doubt "):
			fmt.Fprintln(out, a.tutor.Doubt(ctx, k, strings.TrimPrefix(line, "doubt")))
			continue
		}

		next, err := a.tutor.Answer(ctx, k, splitAnswers(line), topic)
		if errors.Is(err, progression.ErrStaleQuestion) {
			fmt.Fprintln(out, theme.Render(theme.Hint, "That question was already answered elsewhere; here is the current one."))
			if next, err = a.tutor.Start(ctx, k, topic); err != nil {
				return err
			}
			turn = next
			printQuestion(out, turn)
			continue
		}
		if err != nil {
			return err
		}
		turn = next
		printFeedback(out, turn)
		if turn.Graded {
			printQuestion(out, turn)
		}
	}
}

func splitAnswers(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func printQuestion(w io.Writer, turn tutor.Turn) {
	if turn.Question == nil {
		fmt.Fprintln(w, theme.Render(theme.Hint, "No question available right now. Type \"start\" to try again."))
		return
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, tutor.FormatQuestion(turn.Question))
}

func printFeedback(w io.Writer, turn tutor.Turn) {
	switch {
	case !turn.Graded:
		fmt.Fprintln(w, theme.Render(theme.Incorrect, turn.Feedback))
	case turn.Outcome.Correct():
		fmt.Fprintln(w, theme.Render(theme.Correct, "✓"), turn.Feedback)
	default:
		fmt.Fprintln(w, theme.Render(theme.Incorrect, "✗"), turn.Feedback)
	}
}

// nextModule picks the first unlocked module the learner has not completed.
func nextModule(ctx context.Context, svc *progression.Service, learner string) (string, error) {
	statuses, err := svc.Status(ctx, learner)
	if err != nil {
		return "", err
	}
	for _, ms := range statuses {
		if !ms.Locked && !ms.Complete {
			return ms.Module, nil
		}
	}
	if len(statuses) == 0 {
		return "", errors.New("no modules configured")
	}
	// Everything is complete; keep practicing the last module.
	return statuses[len(statuses)-1].Module, nil
}

func checkUnlocked(ctx context.Context, svc *progression.Service, learner, module string) error {
	statuses, err := svc.Status(ctx, learner)
	if err != nil {
		return err
	}
	var prev string
	for _, ms := range statuses {
		if ms.Module == module {
			if ms.Locked {
				return fmt.Errorf("module %s is locked: reach level %d in %s first",
					module, svc.Machine().Config().CompleteLevel, prev)
			}
			return nil
		}
		prev = ms.Module
	}
	// Modules outside the learning path are not gated.
	return nil
}
