package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

// NewPlayCmd runs one attempt in the terminal against a definitions file.
func NewPlayCmd(configPath *string) *cobra.Command {
	var file, userID string
	cmd := &cobra.Command{
		Use:   "play <quizID>",
		Short: "Play one attempt in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				file = cfg.Quiz.Definitions
			}
			defs := sampleDefinitions()
			if file != "" {
				loaded, err := memory.LoadDefinitionsFile(file)
				if err != nil {
					return err
				}
				defs = loaded
			}
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), defs, args[0], userID)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML definitions file (defaults to quiz.definitions)")
	cmd.Flags().StringVar(&userID, "user", "local", "user id recorded on the attempt")
	return cmd
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, defs map[string]domain.QuizDefinition, quizID, userID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	def, ok := defs[quizID]
	if !ok {
		return fmt.Errorf("%w: %s (available: %s)", domain.ErrQuizNotFound, quizID, strings.Join(sortedIDs(defs), ", "))
	}

	service := app.NewAttemptService(
		memory.NewSessionStore(),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(defs), 0),
		memory.NewAttemptStore(),
	)
	snap, err := service.StartAttempt(ctx, def.Kind, quizID, userID)
	if err != nil {
		return err
	}
	updates, cancel, err := service.Subscribe(ctx, snap.AttemptID)
	if err != nil {
		return err
	}
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(out, "%s (%s, %d levels)\n", def.Name, def.Kind.Normalize(), len(def.Levels))
	shown := ""
	current := snap
	for {
		select {
		case next, ok := <-updates:
			if !ok {
				return nil
			}
			current = next
			if key := questionKey(current); key != "" && key != shown {
				shown = key
				printQuestion(out, current)
			}
			if current.State == app.StateAborted {
				return fmt.Errorf("attempt aborted: %s", current.Error)
			}
			if current.State == app.StateFinished && current.Submission != app.SubmissionPending {
				printResult(out, current)
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				_, _ = service.ForceClose(ctx, current.AttemptID)
				continue
			}
			if line == "" {
				continue
			}
			next, err := service.SelectAnswer(ctx, current.AttemptID, resolveOption(current, line))
			if err != nil {
				return err
			}
			current = next
		case <-ctx.Done():
			_, _ = service.ForceClose(context.Background(), current.AttemptID)
			return ctx.Err()
		}
	}
}

func questionKey(s app.Snapshot) string {
	if s.State != app.StateInLevel || s.Question == nil {
		return ""
	}
	return fmt.Sprintf("%d/%s", s.LevelIndex, s.Question.ID)
}

func printQuestion(out io.Writer, s app.Snapshot) {
	if s.QuestionIndex == 0 {
		fmt.Fprintf(out, "\nLevel %d/%d: %s (%ds)\n", s.LevelIndex+1, s.LevelCount, s.LevelName, s.SecondsRemaining)
	}
	fmt.Fprintf(out, "[%d/%d] %s\n", s.QuestionIndex+1, s.QuestionCount, s.Question.Prompt)
	for i, opt := range s.Question.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
}

// resolveOption accepts either the option text or its 1-based number.
func resolveOption(s app.Snapshot, line string) string {
	if s.Question == nil {
		return line
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(s.Question.Options) {
		return s.Question.Options[n-1]
	}
	return line
}

func printResult(out io.Writer, s app.Snapshot) {
	a := s.Attempt
	fmt.Fprintf(out, "\nResult: %s (%d/%d needed) in %ds\n", a.Result, a.TotalScore, a.PassingMarks, a.ElapsedSeconds)
	for _, level := range a.Levels {
		fmt.Fprintf(out, "  %s: score=%d correct=%d wrong=%d unanswered=%d %s\n",
			level.LevelName, level.Score, level.CorrectAnswers, level.WrongAnswers, level.Unanswered, level.CloseReason)
	}
	if s.Submission == app.SubmissionFailed {
		fmt.Fprintf(out, "submission failed: %s\n", s.SubmissionError)
	}
}

func sortedIDs(defs map[string]domain.QuizDefinition) []string {
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
