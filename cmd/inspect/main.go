package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/selftest-engine/internal/config"
	"github.com/danielpatrickdp/selftest-engine/internal/logging"
	"github.com/danielpatrickdp/selftest-engine/internal/report"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
	"github.com/danielpatrickdp/selftest-engine/internal/session"
)

var (
	dbPath   string
	last     int
	jsonOut  bool
	plotPath string
)

// #region main

func main() {
	rootCmd := &cobra.Command{
		Use:          "inspect",
		Short:        "Inspect stored self-test sessions",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultStorePath(), "path to selftest.db")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE:  withStore(runSessions),
	}
	sessionsCmd.Flags().IntVar(&last, "last", 20, "show N most recent sessions")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the records and verdict of one session",
		Args:  cobra.ExactArgs(1),
		RunE:  withStore(runShow),
	}
	showCmd.Flags().StringVar(&plotPath, "plot", "", "save the gaze trace to this image file")

	verdictsCmd := &cobra.Command{
		Use:   "verdicts <session-id>",
		Short: "List the verdict log of one session",
		Args:  cobra.ExactArgs(1),
		RunE:  withStore(runVerdicts),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session with its records and verdict log",
		Args:  cobra.ExactArgs(1),
		RunE:  withStore(runDelete),
	}

	rootCmd.AddCommand(sessionsCmd, showCmd, verdictsCmd, deleteCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withStore(fn func(context.Context, *results.SQLiteStore, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		store, err := results.OpenSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		return fn(cmd.Context(), store, args)
	}
}

// #endregion main

// #region sessions

type sessionRow struct {
	SessionID string   `json:"session_id"`
	StartedAt string   `json:"started_at"`
	EndedAt   string   `json:"ended_at,omitempty"`
	Records   []string `json:"records"`
}

func runSessions(ctx context.Context, store *results.SQLiteStore, _ []string) error {
	infos, err := store.Sessions(ctx, last)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]sessionRow, len(infos))
	for i, info := range infos {
		r := sessionRow{
			SessionID: info.ID,
			StartedAt: info.StartedAt.Format("2006-01-02T15:04:05Z"),
			Records:   make([]string, 0, len(info.Keys)),
		}
		if !info.EndedAt.IsZero() {
			r.EndedAt = info.EndedAt.Format("2006-01-02T15:04:05Z")
		}
		for _, k := range info.Keys {
			r.Records = append(r.Records, string(k))
		}
		rows[i] = r
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-12s  %-20s  %-20s  %s\n", "Session", "Started", "Ended", "Records")
	fmt.Printf("%-12s+-%-20s+-%-20s+-%s\n", "------------", "--------------------", "--------------------", "----------------")
	for _, r := range rows {
		ended := "-"
		if r.EndedAt != "" {
			ended = r.EndedAt
		}
		fmt.Printf("%-12s  %-20s  %-20s  %s\n", shortID(r.SessionID), r.StartedAt, ended, strings.Join(r.Records, ","))
	}
	return nil
}

// #endregion sessions

// #region show

func runShow(ctx context.Context, store *results.SQLiteStore, args []string) error {
	id := args[0]
	st, found, err := store.Existing(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session %s not found", id)
	}
	snap, err := results.LoadSnapshot(ctx, st)
	if err != nil {
		return err
	}
	sum := session.Summary{ID: id, Snapshot: snap, Verdict: risk.Tally(snap)}

	entries, err := logging.ListVerdicts(ctx, store.DB(), id)
	if err != nil {
		return err
	}
	if n := len(entries); n > 0 {
		sum.Advice = adviceFromLog(entries[n-1])
	}

	if plotPath != "" {
		if snap.Gaze == nil {
			return fmt.Errorf("session %s has no gaze record", id)
		}
		if err := report.PlotGazeTrace(snap.Gaze.Trace, "Gaze "+id, plotPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "plot written to %s\n", plotPath)
	}

	if jsonOut {
		return report.RenderJSON(os.Stdout, sum)
	}
	return report.RenderText(os.Stdout, sum)
}

func adviceFromLog(e logging.VerdictEntry) risk.Advice {
	switch e.AdviceStatus {
	case risk.AdviceReady.String():
		return risk.Advice{State: risk.AdviceReady, Text: e.Advice}
	case risk.AdvicePending.String():
		return risk.Advice{State: risk.AdvicePending}
	case risk.AdviceUnavailable.String():
		return risk.Advice{State: risk.AdviceUnavailable}
	}
	return risk.Advice{State: risk.AdviceIdle}
}

// #endregion show

// #region verdicts

type verdictRow struct {
	Tier      string                `json:"tier"`
	FailCount int                   `json:"fail_count"`
	Complete  bool                  `json:"complete"`
	Advice    string                `json:"advice_status"`
	CreatedAt string                `json:"created_at"`
	Inputs    logging.VerdictInputs `json:"inputs"`
}

func runVerdicts(ctx context.Context, store *results.SQLiteStore, args []string) error {
	entries, err := logging.ListVerdicts(ctx, store.DB(), args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no verdicts found")
		return nil
	}

	rows := make([]verdictRow, len(entries))
	for i, e := range entries {
		rows[i] = verdictRow{
			Tier:      e.Tier,
			FailCount: e.FailCount,
			Complete:  e.Complete,
			Advice:    e.AdviceStatus,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if e.InputsJSON != "" {
			if err := json.Unmarshal([]byte(e.InputsJSON), &rows[i].Inputs); err != nil {
				return fmt.Errorf("decode verdict inputs: %w", err)
			}
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-8s  %5s  %-8s  %-11s  %8s  %6s  %6s  %s\n",
		"Tier", "Fails", "Complete", "Advice", "Gaze", "Errors", "Speech", "Time")
	fmt.Printf("%-8s+-%5s+-%-8s+-%-11s+-%8s+-%6s+-%6s+-%s\n",
		"--------", "-----", "--------", "-----------", "--------", "------", "------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-8s  %5d  %-8v  %-11s  %8s  %6s  %6s  %s\n",
			r.Tier, r.FailCount, r.Complete, r.Advice,
			optFloat(r.Inputs.GazeScore, "%.2f"), optInt(r.Inputs.GaitErrors), optFloat(r.Inputs.Similarity, "%.0f%%"),
			r.CreatedAt)
	}
	return nil
}

// #endregion verdicts

// #region delete

func runDelete(ctx context.Context, store *results.SQLiteStore, args []string) error {
	id := args[0]
	if _, found, err := store.Existing(ctx, id); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("session %s not found", id)
	}
	if err := store.DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "deleted session %s\n", id)
	return nil
}

// #endregion delete

// #region output

func optFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
