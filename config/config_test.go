package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, -0.5, cfg.Moderation.SentimentThreshold)
	assert.Equal(t, 10*time.Second, cfg.Moderation.ClassifierTimeout)
	assert.Equal(t, 10240, cfg.Moderation.MaxTextSize)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10000, cfg.Cache.Size)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Empty(t, cfg.Classifier.APIKey)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Lexicon.Obfuscation)
	assert.Empty(t, cfg.Lexicon.PatternsPath)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moderation.yaml")
	body := `
server:
  addr: ":9090"
  max_body_bytes: 4096
lexicon:
  obfuscation: false
  patterns_path: /etc/moderation/patterns.txt
moderation:
  sentiment_threshold: -0.3
  classifier_timeout: 2s
cache:
  driver: redis
storage:
  driver: mongo
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("MODERATION_CLASSIFIER_API_KEY", "sk-test")
	t.Setenv("MODERATION_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, -0.3, cfg.Moderation.SentimentThreshold)
	assert.Equal(t, 2*time.Second, cfg.Moderation.ClassifierTimeout)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, "sk-test", cfg.Classifier.APIKey)
	assert.Equal(t, int64(4096), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Lexicon.Obfuscation)
	assert.Equal(t, "/etc/moderation/patterns.txt", cfg.Lexicon.PatternsPath)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MODERATION_MODERATION_SENTIMENT_THRESHOLD", "-1.5")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:     ServerConfig{MaxBodyBytes: 1024},
			Moderation: ModerationConfig{SentimentThreshold: -0.5, ClassifierTimeout: time.Second, MaxTextSize: 1},
			Cache:      CacheConfig{Driver: "none"},
			Storage:    StorageConfig{Driver: "memory"},
		}
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"threshold boundary", func(c *Config) { c.Moderation.SentimentThreshold = 1 }, true},
		{"threshold too low", func(c *Config) { c.Moderation.SentimentThreshold = -1.01 }, false},
		{"zero timeout", func(c *Config) { c.Moderation.ClassifierTimeout = 0 }, false},
		{"negative size", func(c *Config) { c.Moderation.MaxTextSize = -1 }, false},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, false},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, false},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "sqlite" }, false},
		{"terms need storage", func(c *Config) { c.Lexicon.FromStorage = true }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
