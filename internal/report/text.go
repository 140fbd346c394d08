// Package report renders a finished session for people and for machines.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
	"github.com/danielpatrickdp/selftest-engine/internal/session"
)

// RideLink opens a ride-share pickup at the current location.
const RideLink = "https://m.uber.com/ul/?action=setPickup&pickup=my_location"

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Width(14)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	tierStyles = map[risk.Tier]lipgloss.Style{
		risk.TierLow:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#52C41A")),
		risk.TierModerate: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAAD14")),
		risk.TierHigh:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4D4F")),
	}
)

// TierLabel is the display name of a tier.
func TierLabel(t risk.Tier) string {
	switch t {
	case risk.TierLow:
		return "Low Risk"
	case risk.TierModerate:
		return "Moderate Risk"
	case risk.TierHigh:
		return "High Risk"
	}
	return string(t)
}

// RenderText writes a human-readable summary of s.
func RenderText(w io.Writer, s session.Summary) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session "+s.ID) + "\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	if g := s.Snapshot.Gaze; g != nil {
		row("Gaze", fmt.Sprintf("score %.2f  samples %d  %s%s", g.Score, g.SampleCount, verdictMark(g.Pass), reasonNote(g.Reason)))
	} else {
		row("Gaze", mutedStyle.Render("not taken"))
	}
	if g := s.Snapshot.Gait; g != nil {
		row("Walk", fmt.Sprintf("errors %d  frames %d  %s%s", g.ErrorCount, g.Frames, verdictMark(g.Pass), reasonNote(g.Reason)))
		if g.FallFrames > 0 || g.StumbleFrames > 0 {
			row("", mutedStyle.Render(fmt.Sprintf("fall frames %d  stumble frames %d", g.FallFrames, g.StumbleFrames)))
		}
	} else {
		row("Walk", mutedStyle.Render("not taken"))
	}
	if sp := s.Snapshot.Speech; sp != nil {
		row("Speech", fmt.Sprintf("similarity %.0f%%  %s%s", sp.Similarity, verdictMark(sp.Pass), reasonNote(sp.Reason)))
		if sp.ExpectedPhrase != "" {
			row("", mutedStyle.Render(fmt.Sprintf("%q heard as %q", sp.ExpectedPhrase, sp.Transcript)))
		}
	} else {
		row("Speech", mutedStyle.Render("not taken"))
	}

	tier := tierStyles[s.Verdict.Tier].Render(TierLabel(s.Verdict.Tier))
	if !s.Verdict.Complete {
		tier += mutedStyle.Render(fmt.Sprintf(" (partial, %d of 3 tests)", s.Verdict.Present))
	}
	row("Overall", tier)

	switch s.Advice.State {
	case risk.AdviceReady:
		row("Advice", s.Advice.Text)
	case risk.AdvicePending:
		row("Advice", mutedStyle.Render("generating advice..."))
	case risk.AdviceUnavailable:
		row("Advice", mutedStyle.Render("advice unavailable"))
	}
	if s.Verdict.SuggestRide {
		row("Ride", RideLink)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func verdictMark(pass bool) string {
	if pass {
		return passStyle.Render("pass")
	}
	return failStyle.Render("fail")
}

func reasonNote(r results.Reason) string {
	if r == "" || r == results.ReasonScored {
		return ""
	}
	return mutedStyle.Render(" (" + strings.ReplaceAll(string(r), "_", " ") + ")")
}
