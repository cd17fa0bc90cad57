package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/labstack/gommon/color"
	"github.com/spf13/cobra"
)

func (a *app) quizzesCmd() *cobra.Command {
	var clubID string
	cmd := &cobra.Command{
		Use:   "quizzes",
		Short: "List the club quizzes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			qs, err := a.remote.Quizzes(cmd.Context(), clubID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, q := range qs {
				done := ""
				if q.Attempted {
					done = color.Green("done")
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d questions\t%s\n", q.ID, q.Title, len(q.Questions), done)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&clubID, "club", "", "only this club's quizzes")

	var answers []int
	take := &cobra.Command{
		Use:   "take QUIZ_ID",
		Short: "Show a quiz, or submit it with --answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			if len(answers) == 0 {
				q, err := a.remote.Quiz(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.printf("%s\n", color.Bold(q.Title))
				for i, question := range q.Questions {
					a.printf("\n%d. %s\n", i+1, question.Prompt)
					for j, opt := range question.Options {
						a.printf("   [%d] %s\n", j, opt)
					}
				}
				a.printf("\nSubmit with: quizzes take %s --answers %s\n", q.ID, answerHint(len(q.Questions)))
				return nil
			}
			att, err := a.remote.SubmitQuiz(cmd.Context(), args[0], answers)
			if err != nil {
				return err
			}
			a.success("Scored %d/%d", att.Score, att.Total)
			return nil
		},
	}
	take.Flags().IntSliceVar(&answers, "answers", nil, "the chosen option index of each question, in order")

	var quizID string
	attempts := &cobra.Command{
		Use:   "attempts",
		Short: "List your quiz attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			as, err := a.remote.Attempts(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, att := range as {
				_, _ = fmt.Fprintf(tw, "%s\t%d/%d\t%s\n", att.QuizID, att.Score, att.Total, att.CreatedAt.Local().Format(timeLayout))
			}
			return tw.Flush()
		},
	}
	attempts.Flags().StringVar(&quizID, "quiz", "", "only this quiz's attempts")

	cmd.AddCommand(take, attempts)
	return cmd
}

// answerHint is a placeholder answer list, "0,0,0" for three questions.
func answerHint(n int) string {
	if n <= 0 {
		return ""
	}
	return "0" + strings.Repeat(",0", n-1)
}
