package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MODERATION"

// Config is the moderationd configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Moderation ModerationConfig
	Classifier ClassifierConfig
	Lexicon    LexiconConfig
	Sentiment  SentimentConfig
	Cache      CacheConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Mongo      MongoConfig
	Postgres   PostgresConfig
}

type ServerConfig struct {
	Addr         string
	Mode         string
	MaxBodyBytes int64
}

type LogConfig struct {
	Level string
}

type ModerationConfig struct {
	SentimentThreshold float64
	ClassifierTimeout  time.Duration
	MaxTextSize        int
}

type ClassifierConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// LexiconConfig selects the profanity list. Empty Path uses the embedded list
// unless the storage driver provides terms. Obfuscation also matches spaced
// and digit-substituted spellings; PatternsPath adds "term regex" lines.
type LexiconConfig struct {
	Path         string
	FromStorage  bool
	Obfuscation  bool
	PatternsPath string
}

type SentimentConfig struct {
	Path string
}

type CacheConfig struct {
	Driver string
	TTL    time.Duration
	Size   int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Driver string
}

type MongoConfig struct {
	URI      string
	Database string
}

type PostgresConfig struct {
	DSN string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("moderation.sentiment_threshold", -0.5)
	v.SetDefault("moderation.classifier_timeout", "10s")
	v.SetDefault("moderation.max_text_size", 10240)
	v.SetDefault("classifier.base_url", "https://api.openai.com/v1")
	v.SetDefault("classifier.model", "gpt-3.5-turbo")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("lexicon.path", "")
	v.SetDefault("lexicon.from_storage", false)
	v.SetDefault("lexicon.obfuscation", true)
	v.SetDefault("lexicon.patterns_path", "")
	v.SetDefault("sentiment.path", "")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.size", 10000)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "almanet")
	v.SetDefault("postgres.dsn", "host=localhost user=postgres dbname=almanet sslmode=disable")
}

// Load reads path if given, otherwise looks for config.yaml in the working
// directory. A missing config file is not an error; environment variables
// such as MODERATION_CLASSIFIER_API_KEY override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			Mode:         v.GetString("server.mode"),
			MaxBodyBytes: v.GetInt64("server.max_body_bytes"),
		},
		Log: LogConfig{Level: v.GetString("log.level")},
		Moderation: ModerationConfig{
			SentimentThreshold: v.GetFloat64("moderation.sentiment_threshold"),
			ClassifierTimeout:  v.GetDuration("moderation.classifier_timeout"),
			MaxTextSize:        v.GetInt("moderation.max_text_size"),
		},
		Classifier: ClassifierConfig{
			BaseURL: v.GetString("classifier.base_url"),
			Model:   v.GetString("classifier.model"),
			APIKey:  v.GetString("classifier.api_key"),
		},
		Lexicon: LexiconConfig{
			Path:         v.GetString("lexicon.path"),
			FromStorage:  v.GetBool("lexicon.from_storage"),
			Obfuscation:  v.GetBool("lexicon.obfuscation"),
			PatternsPath: v.GetString("lexicon.patterns_path"),
		},
		Sentiment: SentimentConfig{Path: v.GetString("sentiment.path")},
		Cache: CacheConfig{
			Driver: strings.ToLower(v.GetString("cache.driver")),
			TTL:    v.GetDuration("cache.ttl"),
			Size:   v.GetInt("cache.size"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage:  StorageConfig{Driver: strings.ToLower(v.GetString("storage.driver"))},
		Mongo:    MongoConfig{URI: v.GetString("mongo.uri"), Database: v.GetString("mongo.database")},
		Postgres: PostgresConfig{DSN: v.GetString("postgres.dsn")},
	}
}

// Validate checks value ranges and driver names.
func (c *Config) Validate() error {
	t := c.Moderation.SentimentThreshold
	if t < -1 || t > 1 {
		return fmt.Errorf("config: moderation.sentiment_threshold %v outside [-1, 1]", t)
	}
	if c.Moderation.ClassifierTimeout <= 0 {
		return errors.New("config: moderation.classifier_timeout must be positive")
	}
	if c.Moderation.MaxTextSize <= 0 {
		return errors.New("config: moderation.max_text_size must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("config: server.max_body_bytes must be positive")
	}
	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("config: unknown cache.driver %q", c.Cache.Driver)
	}
	switch c.Storage.Driver {
	case "memory", "mongo", "postgres":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Lexicon.FromStorage && c.Storage.Driver == "memory" {
		return errors.New("config: lexicon.from_storage requires a persistent storage.driver")
	}
	return nil
}
