package lexicon

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elum-utils/moderation/interfaces"
)

// ErrEmptyLexicon is returned when a source yields no usable terms.
var ErrEmptyLexicon = errors.New("lexicon: no terms loaded")

//go:embed data/profanity.txt
var defaultTerms string

// Default returns the embedded English term list.
func Default(opts ...Option) *Store {
	s, err := Parse(strings.NewReader(defaultTerms), opts...)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded list is broken: %v", err))
	}
	return s
}

// Parse reads one term per line. Blank lines and lines starting with # are skipped.
func Parse(r io.Reader, opts ...Option) (*Store, error) {
	var terms []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lexicon: read: %w", err)
	}
	return build(terms, opts...)
}

// LoadFile parses a term file from disk.
func LoadFile(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Load reads terms once from a storage adapter.
func Load(ctx context.Context, src interfaces.TermSource, opts ...Option) (*Store, error) {
	if src == nil {
		return nil, errors.New("lexicon: term source is nil")
	}
	terms, err := src.GetTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("lexicon: load terms: %w", err)
	}
	return build(terms, opts...)
}

func build(terms []string, opts ...Option) (*Store, error) {
	s := New(terms, opts...)
	if s.Len() == 0 {
		return nil, ErrEmptyLexicon
	}
	return s, nil
}
