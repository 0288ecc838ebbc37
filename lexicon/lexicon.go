// Package lexicon holds the immutable profanity term set used as the first
// moderation stage.
package lexicon

import (
	"regexp"
	"strings"
	"sync/atomic"
)

// Stats contains runtime lookup metrics.
type Stats struct {
	TermCount     int64
	TotalLookups  int64
	TotalMatches  int64
	LastLookupLen int64
}

// Store is a read-only list of disallowed terms with case-insensitive
// substring lookup. Terms are never mutated after New, so reads need no lock.
type Store struct {
	terms []string
	// variants[i] matches obfuscated spellings of terms[i]; nil when disabled.
	variants []*regexp.Regexp
	patterns []Pattern

	totalLookups  atomic.Int64
	totalMatches  atomic.Int64
	lastLookupLen atomic.Int64
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// New builds a store. Terms are lower-cased and trimmed; empty ones are
// dropped. Definition order and duplicates are preserved.
func New(terms []string, opts ...Option) *Store {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		t := normalizeTerm(term)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	s := &Store{terms: out}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contains reports whether any term is a substring of the lower-cased text,
// or any enabled pattern matches it.
func (s *Store) Contains(text string) bool {
	lower := s.lookup(text)
	for i := range s.terms {
		if s.matchTerm(i, text, lower) {
			s.totalMatches.Add(1)
			return true
		}
	}
	for _, p := range s.patterns {
		if p.re.MatchString(text) {
			s.totalMatches.Add(1)
			return true
		}
	}
	return false
}

// MatchedTerms returns every term found in the text, in definition order,
// followed by the terms of matching extra patterns not reported yet.
func (s *Store) MatchedTerms(text string) []string {
	lower := s.lookup(text)
	var found []string
	for i, term := range s.terms {
		if s.matchTerm(i, text, lower) {
			found = append(found, term)
		}
	}
	for _, p := range s.patterns {
		if !p.re.MatchString(text) {
			continue
		}
		seen := false
		for _, f := range found {
			if f == p.Term {
				seen = true
				break
			}
		}
		if !seen {
			found = append(found, p.Term)
		}
	}
	return found
}

func (s *Store) matchTerm(i int, text, lower string) bool {
	if strings.Contains(lower, s.terms[i]) {
		return true
	}
	return s.variants != nil && s.variants[i] != nil && s.variants[i].MatchString(text)
}

func (s *Store) lookup(text string) string {
	s.totalLookups.Add(1)
	s.lastLookupLen.Store(int64(len(text)))
	return strings.ToLower(text)
}

// Terms returns a copy of the term list.
func (s *Store) Terms() []string {
	return append([]string(nil), s.terms...)
}

// Patterns returns the number of extra patterns.
func (s *Store) Patterns() int {
	return len(s.patterns)
}

// Len returns term count.
func (s *Store) Len() int {
	return len(s.terms)
}

// Stats returns current metrics.
func (s *Store) Stats() Stats {
	return Stats{
		TermCount:     int64(len(s.terms)),
		TotalLookups:  s.totalLookups.Load(),
		TotalMatches:  s.totalMatches.Load(),
		LastLookupLen: s.lastLookupLen.Load(),
	}
}
