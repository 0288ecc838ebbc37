package sentiment

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed data/afinn.txt
var defaultLexicon string

// Lexicon maps lower-case terms to weights in [MinScore, MaxScore]. It is
// read-only after construction.
type Lexicon struct {
	weights map[string]float64
}

// NewLexicon copies the given weights, lower-casing terms.
func NewLexicon(weights map[string]float64) *Lexicon {
	out := make(map[string]float64, len(weights))
	for term, w := range weights {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		out[t] = w
	}
	return &Lexicon{weights: out}
}

// DefaultLexicon returns the embedded AFINN-derived lexicon, with AFINN
// values divided by 5.
func DefaultLexicon() *Lexicon {
	l, err := ParseLexicon(strings.NewReader(defaultLexicon))
	if err != nil {
		panic(fmt.Sprintf("sentiment: embedded lexicon is broken: %v", err))
	}
	return l
}

// ParseLexicon reads "term weight" lines separated by tabs or spaces.
// Blank lines and # comments are skipped.
func ParseLexicon(r io.Reader) (*Lexicon, error) {
	weights := make(map[string]float64)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("sentiment: line %d: expected term and weight", lineNo)
		}
		raw := fields[len(fields)-1]
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("sentiment: line %d: bad weight %q: %w", lineNo, raw, err)
		}
		if w < MinScore || w > MaxScore {
			return nil, fmt.Errorf("sentiment: line %d: weight %v out of range", lineNo, w)
		}
		term := strings.Join(fields[:len(fields)-1], " ")
		weights[strings.ToLower(term)] = w
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sentiment: read: %w", err)
	}
	return &Lexicon{weights: weights}, nil
}

// LoadLexiconFile parses a lexicon file from disk.
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sentiment: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseLexicon(f)
}

// Weight returns the weight of a token, 0 when unknown.
func (l *Lexicon) Weight(token string) float64 {
	return l.weights[token]
}

// Len returns entry count.
func (l *Lexicon) Len() int {
	return len(l.weights)
}
