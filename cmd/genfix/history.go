package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"genfix"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored generation cycles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.ListCycles(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal cycles: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			return printHistory(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of cycles (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printHistory(w io.Writer, records []*genfix.CycleRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOURSE\tSTATUS\tSTARTED\tFAILED CHECKS\tQUESTION")
	for _, r := range records {
		failed := make([]string, 0)
		for _, qc := range r.FailedChecks() {
			failed = append(failed, string(qc.Check))
		}
		text := ""
		if q := displayQuestion(r.GenerationCycle); q != nil {
			text = truncate(q.Text, 60)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Course, r.Status, r.StartedAt.Format("2006-01-02 15:04"), strings.Join(failed, ","), text)
	}
	return tw.Flush()
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <cycle-id>",
		Short: "Print one stored cycle with its options and check results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			record, err := db.GetCycle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCycle(cmd.OutOrStdout(), record.GenerationCycle)
			return nil
		},
	}
}

func printCycle(w io.Writer, cycle *genfix.GenerationCycle) {
	fmt.Fprintf(w, "Cycle %s (%s, %s): %s\n", cycle.ID, cycle.Course, cycle.Subject, cycle.Status)
	if cycle.FailureReason != "" {
		fmt.Fprintf(w, "Failure: %s\n", cycle.FailureReason)
	}

	if q := displayQuestion(cycle); q != nil {
		fmt.Fprintf(w, "\n%s\n\n", q.Text)
		letters := "ABCDEFGH"
		for i, r := range q.Responses {
			marker := " "
			if r.IsCorrect {
				marker = "*"
			}
			letter := "?"
			if i < len(letters) {
				letter = letters[i : i+1]
			}
			fmt.Fprintf(w, "%s %s) %s\n", marker, letter, r.Text)
		}
		if correct, ok := q.CorrectResponse(); ok && correct.Explanation != "" {
			fmt.Fprintf(w, "\nExplanation: %s\n", correct.Explanation)
		}
		fmt.Fprintf(w, "Difficulty: %s\n", q.Difficulty)
	}

	if len(cycle.QCResults) > 0 {
		fmt.Fprintln(w, "\nQuality checks:")
		for _, r := range cycle.QCResults {
			mark := "pass"
			if !r.Passed() {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "  %-10s %s  %s\n", r.Check, mark, r.Feedback)
		}
	}
	if len(cycle.SimilarTo) > 0 {
		fmt.Fprintf(w, "\nSimilar to: %s\n", strings.Join(cycle.SimilarTo, " | "))
	}
}

func displayQuestion(c *genfix.GenerationCycle) *genfix.Question {
	if c.FinalQuestion != nil {
		return c.FinalQuestion
	}
	return c.OriginalQuestion
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
