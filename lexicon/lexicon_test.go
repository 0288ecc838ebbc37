package lexicon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContainsCaseInsensitive(t *testing.T) {
	assert := assert.New(t)
	s := New([]string{"Idiot", "buy now"})

	fixtures := []struct {
		text string
		out  bool
	}{
		{out: false, text: ""},
		{out: false, text: "hello there"},
		{out: true, text: "you are an IDIOT"},
		{out: true, text: "idiots everywhere"},
		{out: true, text: "Please BUY NOW!"},
		{out: false, text: "buy it now"},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.out, s.Contains(fix.text), fix.text)
	}
}

func TestMatchedTermsDefinitionOrder(t *testing.T) {
	s := New([]string{"zeta", "alpha", "mid"})
	got := s.MatchedTerms("ALPHA mid ZETA")
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, got)
}

func TestMatchedTermsDuplicatesOnlyFromLexicon(t *testing.T) {
	s := New([]string{"bad", "bad", "worse"})
	assert.Equal(t, []string{"bad", "bad"}, s.MatchedTerms("bad bad bad"))
	assert.Nil(t, New([]string{"x"}).MatchedTerms("nothing here"))
}

func TestMatchedTermsAgreesWithContains(t *testing.T) {
	s := Default()
	for _, text := range []string{"you are an idiot", "What a lovely day", "SHITTY code", ""} {
		assert.Equal(t, s.Contains(text), len(s.MatchedTerms(text)) > 0, text)
	}
}

func TestNewDropsEmptyTerms(t *testing.T) {
	s := New([]string{" a ", "", "   ", "B"})
	assert.Equal(t, []string{"a", "b"}, s.Terms())
	assert.Equal(t, 2, s.Len())
}

func TestTermsReturnsCopy(t *testing.T) {
	s := New([]string{"one"})
	terms := s.Terms()
	terms[0] = "two"
	assert.Equal(t, []string{"one"}, s.Terms())
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	s, err := Parse(strings.NewReader("# header\n\nfoo\n  Bar  \n#baz\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, s.Terms())
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader("# nothing\n\n"))
	assert.ErrorIs(t, err, ErrEmptyLexicon)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("does/not/exist.txt")
	assert.Error(t, err)
}

func TestDefaultContainsIdiot(t *testing.T) {
	s := Default()
	assert.Equal(t, []string{"idiot"}, s.MatchedTerms("you are an idiot"))
}

type stubSource struct {
	terms []string
	err   error
}

func (s stubSource) GetTerms(context.Context) ([]string, error) { return s.terms, s.err }

func TestLoadFromSource(t *testing.T) {
	s, err := Load(context.Background(), stubSource{terms: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	boom := errors.New("boom")
	_, err = Load(context.Background(), stubSource{err: boom})
	assert.ErrorIs(t, err, boom)

	_, err = Load(context.Background(), nil)
	assert.Error(t, err)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New([]string{"spam"})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Contains("SPAM spam")
			_ = s.MatchedTerms("spam")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(200), s.Stats().TotalLookups)
}

func TestObfuscatedSpellings(t *testing.T) {
	assert := assert.New(t)
	s := New([]string{"idiot", "shit", "cunt", "ass"}, WithObfuscation())

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "you are an i.d.i.o.t", out: []string{"idiot"}},
		{text: "total 1d10t", out: []string{"idiot"}},
		{text: "I D I O T", out: []string{"idiot"}},
		{text: "such an idiooooot", out: []string{"idiot"}},
		{text: "what a load of sh!t", out: []string{"shit"}},
		{text: "s-h-i-t happens", out: []string{"shit"}},
		{text: "I did it again", out: nil},
		{text: "See section 3c. Until then", out: nil},
		{text: "a s s", out: nil},
		{text: "a lovely afternoon", out: nil},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.out, s.MatchedTerms(fix.text), fix.text)
		assert.Equal(fix.out != nil, s.Contains(fix.text), fix.text)
	}
}

func TestObfuscationOffByDefault(t *testing.T) {
	assert.False(t, New([]string{"idiot"}).Contains("i.d.i.o.t"))
	assert.True(t, Default(WithObfuscation()).Contains("m0r0n"))
}

func TestExtraPatterns(t *testing.T) {
	patterns, err := ParsePatterns(strings.NewReader("# custom\nscam   fr[e3]{2}\\s*crypto\nidiot  \\bdumb\\s*dumb\\b\n"))
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	s := New([]string{"idiot"}, WithPatterns(patterns...))
	assert.Equal(t, 2, s.Patterns())
	assert.Equal(t, []string{"scam"}, s.MatchedTerms("FREE crypto for all"))
	assert.Equal(t, []string{"idiot"}, s.MatchedTerms("idiot, dumb dumb"))
	assert.False(t, s.Contains("free to go"))
}

func TestParsePatternsErrors(t *testing.T) {
	_, err := ParsePatterns(strings.NewReader("lonely\n"))
	assert.Error(t, err)
	_, err = ParsePatterns(strings.NewReader("bad (unclosed\n"))
	assert.Error(t, err)
	_, err = CompilePattern("  ", "x")
	assert.Error(t, err)
}
