package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// minVariantLen is the shortest term, in letters, that gets an obfuscation
// variant. Shorter ones match too many ordinary words once symbols and
// spacing are allowed between letters.
const minVariantLen = 4

// Pattern is a regular expression reported as Term when it matches.
type Pattern struct {
	Term string
	re   *regexp.Regexp
}

// Option configures a Store.
type Option func(*Store)

// WithPatterns adds extra patterns checked against the raw text.
func WithPatterns(patterns ...Pattern) Option {
	return func(s *Store) {
		s.patterns = append(s.patterns, patterns...)
	}
}

// WithObfuscation makes every term of at least four letters also match
// spellings such as "f*u*c*k", "1d10t", "sh!t", "i d i o t" and "idiooot".
func WithObfuscation() Option {
	return func(s *Store) {
		s.variants = make([]*regexp.Regexp, len(s.terms))
		compiled := make(map[string]*regexp.Regexp, len(s.terms))
		for i, term := range s.terms {
			if re, ok := compiled[term]; ok {
				s.variants[i] = re
				continue
			}
			re := variantRegexp(term)
			compiled[term] = re
			s.variants[i] = re
		}
	}
}

// CompilePattern compiles a case-insensitive pattern reported as term.
func CompilePattern(term, expr string) (Pattern, error) {
	term = normalizeTerm(term)
	if term == "" {
		return Pattern{}, fmt.Errorf("lexicon: pattern %q has no term", expr)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("lexicon: pattern for %q: %w", term, err)
	}
	return Pattern{Term: term, re: re}, nil
}

// ParsePatterns reads "term<whitespace>regexp" lines. Blank lines and lines
// starting with # are skipped.
func ParsePatterns(r io.Reader) ([]Pattern, error) {
	var out []Pattern
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexFunc(line, unicode.IsSpace)
		if i <= 0 {
			return nil, fmt.Errorf("lexicon: pattern line %d: expected term and expression", lineNo)
		}
		p, err := CompilePattern(line[:i], strings.TrimSpace(line[i:]))
		if err != nil {
			return nil, fmt.Errorf("lexicon: pattern line %d: %w", lineNo, err)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lexicon: read patterns: %w", err)
	}
	return out, nil
}

// LoadPatternsFile parses a pattern file from disk.
func LoadPatternsFile(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open %s: %w", path, err)
	}
	defer f.Close()
	return ParsePatterns(f)
}

var leet = map[rune]string{
	'a': "a4@",
	'b': "b8",
	'e': "e3",
	'g': "g9",
	'i': "i1!|",
	'l': "l1|",
	'o': "o0",
	's': "s5$",
	't': "t7+",
}

func letterClass(r rune) string {
	if alt, ok := leet[r]; ok {
		return "[" + regexp.QuoteMeta(alt) + "]+"
	}
	return "(?:" + regexp.QuoteMeta(string(r)) + ")+"
}

// variantRegexp builds two alternatives for term: letters joined by up to
// three symbols ("f*u*c*k", "sh!t"), and single letters separated by spaces
// or symbols as a whole word ("i d i o t"). Letters may repeat and use
// common digit/symbol substitutes.
func variantRegexp(term string) *regexp.Regexp {
	var classes []string
	for _, r := range term {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			classes = append(classes, letterClass(r))
		}
	}
	if len(classes) < minVariantLen {
		return nil
	}
	compact := strings.Join(classes, `[^\pL\pN\s]{0,3}`)
	spaced := `(?:^|[^\pL\pN])` + strings.Join(classes, `[^\pL\pN]+`) + `(?:$|[^\pL\pN])`
	return regexp.MustCompile("(?i)" + compact + "|" + spaced)
}
