package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chemscreen/internal/export"
	"github.com/pdiddy/chemscreen/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage recorded screening sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("no sessions recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCHEMICALS\tRESULTS\tUPDATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				s.ID, s.Status, s.ChemicalCount, s.ResultCount, timestamp(s.UpdatedAt))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its per-chemical results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		sess, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		results := sess.OrderedResults()
		sum := export.Summarize(results)
		fmt.Printf("Session %s\n", sess.ID)
		fmt.Printf("  status:   %s\n", sess.Status)
		fmt.Printf("  created:  %s\n", timestamp(sess.CreatedAt))
		fmt.Printf("  updated:  %s\n", timestamp(sess.UpdatedAt))
		fmt.Printf("  results:  %d of %d (mean score %.1f)\n\n",
			len(results), len(sess.Chemicals), sum.MeanScore)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHEMICAL\tCAS\tHITS\tSCORE\tTREND\tERROR")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
				r.Chemical.Name, r.Chemical.CASNumber, r.TotalCount,
				r.QualityScore, r.Trend, r.Error)
		}
		return w.Flush()
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted session %s\n", args[0])
		return nil
	},
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete sessions older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		days := cfg.Sessions.CleanupDays
		if v, _ := cmd.Flags().GetInt("days"); v > 0 {
			days = v
		}

		store, err := openSessionStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.DeleteOlderThan(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d session(s) older than %d days\n", removed, days)
		return nil
	},
}

func openSessionStore(cmd *cobra.Command) (*session.Store, error) {
	log, err := buildLogger(cmd)
	if err != nil {
		return nil, err
	}
	return session.NewStore(loadConfig().Sessions, log)
}

func init() {
	sessionsCleanupCmd.Flags().Int("days", 0, "retention window in days (default from config)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsCleanupCmd)
	rootCmd.AddCommand(sessionsCmd)
}
