// Package sentiment scores free text and maps the score to a reply emoji.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

const (
	positiveEmoji = "😊"
	negativeEmoji = "😠"
)

// Analyzer computes polarity with the VADER lexicon. It is safe for
// concurrent use once built.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// New builds an Analyzer. Loading the lexicon is the expensive part, so build
// one at startup.
func New() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the compound score of text in [-1, 1].
func (a *Analyzer) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return a.vader.PolarityScores(text).Compound
}

// Emoji maps a polarity to its emoji by sign. Exactly zero maps to "".
func Emoji(polarity float64) string {
	switch {
	case polarity > 0:
		return positiveEmoji
	case polarity < 0:
		return negativeEmoji
	default:
		return ""
	}
}
