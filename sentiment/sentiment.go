// Package sentiment scores free text against a weighted term lexicon.
//
// Scores live on the closed interval [MinScore, MaxScore]. The score of a
// text is the sum of the weights of its known tokens, clamped to that
// interval. Negative means more negative sentiment.
package sentiment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/elum-utils/moderation/interfaces"
)

const (
	MinScore     = -1.0
	MaxScore     = 1.0
	NeutralScore = 0.0
)

// ErrMalformedText is returned by Tokenize for input that is not valid UTF-8.
var ErrMalformedText = errors.New("sentiment: text is not valid UTF-8")

var (
	apostrophes   = strings.NewReplacer("'", "", "’", "")
	nonTokenChars = regexp.MustCompile(`[^\pL\pN]+`)
)

// Tokenize lower-cases text, folds accents and splits it into word tokens.
func Tokenize(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, ErrMalformedText
	}
	if text == "" {
		return []string{}, nil
	}
	// transform chains are stateful and must not be shared between goroutines
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, text)
	if err != nil {
		return nil, fmt.Errorf("sentiment: normalize: %w", err)
	}
	split := nonTokenChars.ReplaceAllString(apostrophes.Replace(folded), " ")
	return strings.Fields(strings.ToLower(split)), nil
}

// Scorer converts text into a bounded score.
type Scorer struct {
	lexicon *Lexicon
	logger  interfaces.Logger
}

var _ interfaces.SentimentAnalyzer = (*Scorer)(nil)

// NewScorer creates a scorer. A nil lexicon scores everything as neutral.
func NewScorer(lexicon *Lexicon, logger interfaces.Logger) *Scorer {
	if lexicon == nil {
		lexicon = NewLexicon(nil)
	}
	return &Scorer{lexicon: lexicon, logger: logger}
}

// Score sums token weights and clamps the result to [MinScore, MaxScore].
func (s *Scorer) Score(tokens []string) float64 {
	sum := 0.0
	for _, tok := range tokens {
		sum += s.lexicon.Weight(tok)
	}
	return clamp(sum)
}

// Analyze tokenizes and scores text. Any fault yields NeutralScore.
func (s *Scorer) Analyze(text string) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logWarn("sentiment analysis panic", map[string]any{"panic": fmt.Sprint(r)})
			score = NeutralScore
		}
	}()
	tokens, err := Tokenize(text)
	if err != nil {
		s.logWarn("sentiment analysis failed", map[string]any{"error": err.Error()})
		return NeutralScore
	}
	return s.Score(tokens)
}

func (s *Scorer) logWarn(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Warn(msg, fields)
	}
}

func clamp(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
