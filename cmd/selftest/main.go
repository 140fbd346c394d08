// Package main provides the selftest CLI: it runs the gaze, walk and speech
// tests against live tracker feeds and prints the aggregated risk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/selftest-engine/internal/advisory"
	"github.com/danielpatrickdp/selftest-engine/internal/config"
	"github.com/danielpatrickdp/selftest-engine/internal/logging"
	"github.com/danielpatrickdp/selftest-engine/internal/report"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/session"
	"github.com/danielpatrickdp/selftest-engine/internal/speech"
)

var (
	configPath string
	dbPath     string
	sessionID  string
	jsonOut    bool
	plotPath   string
	forceInit  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #region commands

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "selftest",
		Short:         "Impairment self-test: gaze, walk and speech",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/selftest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "results database (overrides store.path)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run all three tests and print the verdict",
		Args:  cobra.NoArgs,
		RunE:  runAllCmd,
	}
	gazeCmd := &cobra.Command{
		Use:   "gaze",
		Short: "Run the horizontal gaze test",
		Args:  cobra.NoArgs,
		RunE:  runSingle(stepGaze),
	}
	gaitCmd := &cobra.Command{
		Use:   "gait",
		Short: "Run the walk-and-turn test; press Enter to stop",
		Args:  cobra.NoArgs,
		RunE:  runSingle(stepGait),
	}
	speechCmd := &cobra.Command{
		Use:   "speech",
		Short: "Run the phrase repetition test; type what was said",
		Args:  cobra.NoArgs,
		RunE:  runSingle(stepSpeech),
	}
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Aggregate a session and print the verdict",
		Args:  cobra.NoArgs,
		RunE:  runResultsCmd,
	}

	for _, c := range []*cobra.Command{runCmd, gazeCmd, gaitCmd, speechCmd, resultsCmd} {
		c.Flags().BoolVar(&jsonOut, "json", false, "print the verdict as JSON")
		c.Flags().StringVar(&plotPath, "plot", "", "save the gaze trace to this image file")
	}
	for _, c := range []*cobra.Command{gazeCmd, gaitCmd, speechCmd, resultsCmd} {
		c.Flags().StringVar(&sessionID, "session", "", "session id to continue (default: new session)")
	}
	_ = resultsCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(runCmd, gazeCmd, gaitCmd, speechCmd, resultsCmd, newConfigCmd())
	return rootCmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if err := config.WriteDefault(path, forceInit); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}

// #endregion commands

// #region wiring

// app holds everything a command needs for one invocation.
type app struct {
	cfg    config.Config
	db     *results.SQLiteStore
	client advisory.Client
	closer func()
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := results.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	client, closer, err := advisoryClient(cfg.Advisory)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{cfg: cfg, db: db, client: client, closer: closer}, nil
}

func (a *app) Close() {
	a.closer()
	if err := a.db.Close(); err != nil {
		logrus.WithError(err).Warn("close db")
	}
}

func (a *app) options() session.Options {
	opts := session.DefaultOptions()
	opts.Gaze = a.cfg.GazeSettings()
	opts.Gait = a.cfg.GaitSettings()
	opts.Speech = a.cfg.SpeechSettings()
	opts.Phrases = speech.NewPhraseBank(a.cfg.Speech.Phrases, nil)
	opts.Advisory = a.client
	opts.AdvisoryTimeout = a.cfg.Advisory.Timeout
	return opts
}

func (a *app) openSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return session.Open(ctx, a.db, a.options())
	}
	return session.Resume(ctx, a.db, id, a.options())
}

func advisoryClient(c config.AdvisoryConfig) (advisory.Client, func(), error) {
	switch c.Transport {
	case "grpc":
		gc, err := advisory.NewGRPCClient(c.Addr)
		if err != nil {
			return nil, nil, err
		}
		return gc, func() { _ = gc.Close() }, nil
	case "http":
		return advisory.NewHTTPClient(c.URL, c.Timeout), func() {}, nil
	}
	return nil, func() {}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// #endregion wiring

// #region run

func runAllCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.openSession(ctx, "")
	if err != nil {
		return err
	}
	defer s.Close()

	in := speech.NewLineTranscriber(os.Stdin)
	defer in.Close()
	for _, run := range []step{stepGaze, stepGait, stepSpeech} {
		if err := run(ctx, a, s, in); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "interrupted; resume with --session %s\n", s.ID())
			}
			return err
		}
	}
	return finish(ctx, cmd, s)
}

func runSingle(fn step) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.openSession(ctx, sessionID)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Fprintf(os.Stderr, "session %s\n", s.ID())
		in := speech.NewLineTranscriber(os.Stdin)
		defer in.Close()
		if err := fn(ctx, a, s, in); err != nil {
			return err
		}
		return finish(ctx, cmd, s)
	}
}

func runResultsCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.openSession(ctx, sessionID)
	if err != nil {
		return err
	}
	defer s.Close()
	return finish(ctx, cmd, s)
}

func finish(ctx context.Context, cmd *cobra.Command, s *session.Session) error {
	sum, err := s.Finish(ctx)
	if err != nil {
		return err
	}
	if plotPath != "" && sum.Snapshot.Gaze != nil {
		if err := report.PlotGazeTrace(sum.Snapshot.Gaze.Trace, "Gaze "+sum.ID, plotPath); err != nil {
			logrus.WithError(err).Warn("gaze plot not written")
		}
	}
	if jsonOut {
		return report.RenderJSON(cmd.OutOrStdout(), sum)
	}
	return report.RenderText(cmd.OutOrStdout(), sum)
}

// #endregion run
