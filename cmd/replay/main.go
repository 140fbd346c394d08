package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/selftest-engine/internal/config"
	"github.com/danielpatrickdp/selftest-engine/internal/replay"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
)

var (
	configPath string
	verbose    bool
)

var errDiverged = errors.New("replay diverged from expectations")

// #region main

func main() {
	rootCmd := &cobra.Command{
		Use:          "replay <fixture|dir>...",
		Short:        "Replay recorded fixtures through the analyzers",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         runReplay,
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file for analyzer thresholds (default: built-in)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print per-test values for every fixture")

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errDiverged) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

// #endregion main

// #region run

func runReplay(_ *cobra.Command, args []string) error {
	cfg := replay.DefaultConfig()
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = replay.Config{Gaze: c.GazeSettings(), Gait: c.GaitSettings(), Speech: c.SpeechSettings()}
	}

	paths, err := fixturePaths(args)
	if err != nil {
		return err
	}

	outcomes := make([]replay.Outcome, 0, len(paths))
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		f, err := replay.LoadFixture(p)
		if err != nil {
			return fmt.Errorf("load fixture: %w", err)
		}
		outcomes = append(outcomes, replay.Run(f, cfg))
		names = append(names, filepath.Base(p))
	}

	if printComparison(names, outcomes) > 0 {
		return errDiverged
	}
	return nil
}

// fixturePaths expands directories into the fixture files they hold.
func fixturePaths(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		entries, err := os.ReadDir(a)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".yaml", ".yml", ".toml":
				out = append(out, filepath.Join(a, e.Name()))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// #endregion run

// #region output

// printComparison outputs a comparison table and returns the number of
// diverging fixtures.
func printComparison(names []string, outcomes []replay.Outcome) int {
	fmt.Printf("%-24s| %-9s| %5s| %s\n", "Fixture", "Tier", "Fails", "Match")
	fmt.Printf("%-24s+%-10s+%-6s+%s\n",
		"------------------------", "----------", "------", "------")

	for i, o := range outcomes {
		match := "OK"
		if !o.Matched() {
			match = "DIFF"
		}
		fmt.Printf("%-24s| %-9s| %5d| %s\n", names[i], o.Verdict.Tier, o.Verdict.FailCount, match)
		if verbose {
			printDetail(o)
		}
		for _, m := range o.Mismatches {
			fmt.Printf("    %s\n", m)
		}
	}

	s := replay.Summarize(outcomes)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", s.Total, s.Matched, s.Failed)
	fmt.Printf("Tiers: low %d, moderate %d, high %d\n",
		s.ByTier[risk.TierLow], s.ByTier[risk.TierModerate], s.ByTier[risk.TierHigh])
	return s.Failed
}

func printDetail(o replay.Outcome) {
	if o.Description != "" {
		fmt.Printf("    %s\n", o.Description)
	}
	if g := o.Snapshot.Gaze; g != nil {
		fmt.Printf("    gaze   score %.2f samples %d pass %v (%s)\n", g.Score, g.SampleCount, g.Pass, g.Reason)
	}
	if g := o.Snapshot.Gait; g != nil {
		fmt.Printf("    gait   errors %d frames %d pass %v (%s)\n", g.ErrorCount, g.Frames, g.Pass, g.Reason)
	}
	if sp := o.Snapshot.Speech; sp != nil {
		fmt.Printf("    speech similarity %.1f pass %v (%s)\n", sp.Similarity, sp.Pass, sp.Reason)
	}
}

// #endregion output
