package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"genfix"
)

func newCoursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List known course codes and their subject areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, course := range genfix.Courses() {
				subject, _ := genfix.GetSubject(course)
				criteria := "no criteria"
				if genfix.GetCriteria(subject, genfix.CriteriaQuestion) != "" {
					criteria = "criteria"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s (%s)\n", course, subject, criteria)
			}
			return nil
		},
	}
}
