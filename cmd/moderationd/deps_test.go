package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elum-utils/moderation/adapters/cache"
	"github.com/elum-utils/moderation/config"
	"github.com/elum-utils/moderation/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Lexicon:    config.LexiconConfig{Obfuscation: true},
		Moderation: config.ModerationConfig{SentimentThreshold: -0.5, ClassifierTimeout: time.Second, MaxTextSize: 1024},
		Cache:      config.CacheConfig{Driver: "memory", TTL: time.Minute, Size: 10},
		Storage:    config.StorageConfig{Driver: "memory"},
	}
}

func TestBuildDependenciesMemory(t *testing.T) {
	d, err := buildDependencies(context.Background(), memoryConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close(logger.Nop())

	if d.lexicon.Len() == 0 {
		t.Fatalf("expected embedded lexicon")
	}
	if d.classifier != nil {
		t.Fatalf("classifier must be nil without api key")
	}
	if _, ok := d.cache.(*cache.Memory); !ok {
		t.Fatalf("expected memory cache, got %T", d.cache)
	}
	if d.preferences == nil || d.statuses == nil || d.sentiment == nil {
		t.Fatalf("missing dependencies")
	}
}

func TestBuildDependenciesClassifierAndFiles(t *testing.T) {
	dir := t.TempDir()
	lexPath := filepath.Join(dir, "terms.txt")
	sentPath := filepath.Join(dir, "afinn.txt")
	if err := os.WriteFile(lexPath, []byte("# custom\nfoo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sentPath, []byte("bad -0.6\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := memoryConfig()
	cfg.Cache.Driver = "none"
	cfg.Lexicon.Path = lexPath
	cfg.Sentiment.Path = sentPath
	cfg.Classifier.APIKey = "sk-test"

	d, err := buildDependencies(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.lexicon.Len() != 1 || !d.lexicon.Contains("FOOBAR") {
		t.Fatalf("expected custom lexicon, got %v", d.lexicon.Terms())
	}
	if d.sentiment.Analyze("bad") != -0.6 {
		t.Fatalf("expected custom sentiment lexicon")
	}
	if d.classifier == nil || d.classifier.Name() != "openai" {
		t.Fatalf("expected openai classifier")
	}
	if d.cache != nil {
		t.Fatalf("expected no cache")
	}
}

func TestBuildDependenciesMissingLexicon(t *testing.T) {
	cfg := memoryConfig()
	cfg.Lexicon.Path = filepath.Join(t.TempDir(), "absent.txt")
	if _, err := buildDependencies(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildDependenciesLexiconPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.txt")
	if err := os.WriteFile(path, []byte("# extra\nscam fr[e3]{2}\\s*money\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := memoryConfig()
	cfg.Lexicon.PatternsPath = path

	d, err := buildDependencies(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.lexicon.Patterns() != 1 {
		t.Fatalf("expected one pattern, got %d", d.lexicon.Patterns())
	}
	if got := d.lexicon.MatchedTerms("get FR33 money now"); len(got) != 1 || got[0] != "scam" {
		t.Fatalf("unexpected matches: %v", got)
	}

	cfg.Lexicon.PatternsPath = filepath.Join(t.TempDir(), "absent.txt")
	if _, err := buildDependencies(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatalf("expected error for missing patterns file")
	}
}
