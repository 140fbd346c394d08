// Package speech scores how clearly a user repeated a target phrase.
package speech

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielpatrickdp/selftest-engine/internal/results"
)

// ErrEmptyInput is returned when no transcript was captured.
var ErrEmptyInput = errors.New("speech: empty transcript")

// #region config

// Config holds the speech test parameters.
type Config struct {
	PassSimilarity float64       // similarity above this passes
	ListenTimeout  time.Duration // listening window before auto stop
	Clamp          bool          // clamp similarity into [0, 100]
}

// DefaultConfig returns the standard speech test configuration.
func DefaultConfig() Config {
	return Config{
		PassSimilarity: 80,
		ListenTimeout:  5 * time.Second,
		Clamp:          true,
	}
}

// #endregion config

// #region distance

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Similarity compares the lower-cased transcript and phrase and returns
// (1 - distance/maxLen) * 100 together with the distance. Two empty strings
// are identical.
func Similarity(transcript, phrase string) (float64, int) {
	a, b := strings.ToLower(transcript), strings.ToLower(phrase)
	d := Levenshtein(a, b)
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100, 0
	}
	return (1 - float64(d)/float64(maxLen)) * 100, d
}

// #endregion distance

// #region evaluate

// Evaluate scores one attempt completed at at. A blank transcript fails with
// ReasonEmptyInput.
func Evaluate(transcript, phrase string, cfg Config, at time.Time) results.SpeechResult {
	res := results.SpeechResult{
		Transcript:     transcript,
		ExpectedPhrase: phrase,
		Reason:         results.ReasonScored,
		CompletedAt:    at.UTC(),
	}
	if strings.TrimSpace(transcript) == "" {
		res.Reason = results.ReasonEmptyInput
		res.Distance = utf8.RuneCountInString(phrase)
		return res
	}
	res.Similarity, res.Distance = Similarity(transcript, phrase)
	if cfg.Clamp {
		res.Similarity = min(max(res.Similarity, 0), 100)
	}
	res.Pass = res.Similarity > cfg.PassSimilarity
	return res
}

// #endregion evaluate
