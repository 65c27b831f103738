package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/session"
	"github.com/spf13/cobra"
)

func newRunsCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved run transcripts",
	}

	runs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(opts)
			if err != nil {
				return err
			}
			list, err := session.NewStore(env.cfg.Runs.Dir).List()
			if err != nil {
				return err
			}
			return printRunList(stdout, list)
		},
	})

	runs.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one run transcript (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(opts)
			if err != nil {
				return err
			}
			s, err := session.NewStore(env.cfg.Runs.Dir).Load(args[0])
			if err != nil {
				return err
			}
			printRun(stdout, s)
			return nil
		},
	})

	return runs
}

func printRunList(w io.Writer, list []session.SessionMeta) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tUPDATED\tTITLE")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(m.ID), m.Status, m.UpdatedAt.Format("2006-01-02 15:04"), m.Title)
	}
	return tw.Flush()
}

func printRun(w io.Writer, s *session.Session) {
	fmt.Fprintf(w, "Run:        %s\n", s.ID)
	fmt.Fprintf(w, "Title:      %s\n", s.Title)
	fmt.Fprintf(w, "Objective:  %s\n", s.Objective)
	fmt.Fprintf(w, "Status:     %s\n", s.Status)
	fmt.Fprintf(w, "Iterations: %d (replans: %d)\n", s.Iterations, s.Replans)
	fmt.Fprintf(w, "Started:    %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\nPlan:")
	for i, step := range s.Plan {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	if s.Summary != "" {
		fmt.Fprintf(w, "\nSummary of earlier steps:\n  %s\n", strings.ReplaceAll(s.Summary, "\n", "\n  "))
	}
	if len(s.History) > 0 {
		fmt.Fprintln(w, "\nHistory:")
		fmt.Fprintln(w, indent(engine.FormatHistory(s.History)))
	}
	fmt.Fprint(w, "\n--- Final Result ---\n")
	fmt.Fprintln(w, s.Response)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
