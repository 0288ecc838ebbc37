package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/elum-utils/moderation/adapters/ai"
	"github.com/elum-utils/moderation/adapters/cache"
	"github.com/elum-utils/moderation/adapters/storage"
	"github.com/elum-utils/moderation/config"
	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/lexicon"
	"github.com/elum-utils/moderation/sentiment"
)

const connectTimeout = 10 * time.Second

// dependencies are the long-lived collaborators of the moderation core.
type dependencies struct {
	lexicon     *lexicon.Store
	sentiment   *sentiment.Scorer
	classifier  interfaces.Classifier
	cache       interfaces.VerdictCache
	preferences interfaces.PreferenceStore
	terms       interfaces.TermSource
	statuses    interfaces.ModerationStore

	closers []func(context.Context) error
}

func (d *dependencies) Close(log interfaces.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			log.Warn("close dependency failed", map[string]any{"error": err})
		}
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config, log interfaces.Logger) (*dependencies, error) {
	d := &dependencies{}
	if err := d.initStorage(ctx, cfg, log); err != nil {
		d.Close(log)
		return nil, err
	}
	if err := d.initLexicon(ctx, cfg); err != nil {
		d.Close(log)
		return nil, err
	}
	log.Info("profanity lexicon loaded", map[string]any{"terms": d.lexicon.Len(), "patterns": d.lexicon.Patterns()})

	if err := d.initSentiment(cfg, log); err != nil {
		d.Close(log)
		return nil, err
	}
	if err := d.initClassifier(cfg, log); err != nil {
		d.Close(log)
		return nil, err
	}
	if err := d.initCache(ctx, cfg); err != nil {
		d.Close(log)
		return nil, err
	}
	return d, nil
}

func (d *dependencies) initStorage(ctx context.Context, cfg *config.Config, log interfaces.Logger) error {
	switch cfg.Storage.Driver {
	case "mongo":
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		d.closers = append(d.closers, client.Disconnect)
		if err := client.Ping(cctx, nil); err != nil {
			return fmt.Errorf("ping mongo: %w", err)
		}
		db := client.Database(cfg.Mongo.Database)
		st, err := storage.NewMongoAdapter(storage.MongoCollections{
			Users: db.Collection("users"),
			Terms: db.Collection("moderation_terms"),
			Posts: db.Collection("posts"),
		})
		if err != nil {
			return err
		}
		d.preferences, d.terms, d.statuses = st, st, st
		log.Info("mongo storage connected", map[string]any{"database": cfg.Mongo.Database})
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		d.closers = append(d.closers, func(context.Context) error { return db.Close() })
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := db.PingContext(cctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		st, err := storage.NewSQLAdapter(db, storage.SQLOptions{Dialect: storage.DialectPostgres})
		if err != nil {
			return err
		}
		if err := st.EnsureSchema(cctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		d.preferences, d.terms, d.statuses = st, st, st
		log.Info("postgres storage connected", nil)
	default:
		st := storage.NewMemoryAdapter()
		d.preferences, d.terms, d.statuses = st, st, st
		log.Warn("using in-memory preference storage", nil)
	}
	return nil
}

func (d *dependencies) initLexicon(ctx context.Context, cfg *config.Config) error {
	var opts []lexicon.Option
	if cfg.Lexicon.Obfuscation {
		opts = append(opts, lexicon.WithObfuscation())
	}
	if cfg.Lexicon.PatternsPath != "" {
		patterns, err := lexicon.LoadPatternsFile(cfg.Lexicon.PatternsPath)
		if err != nil {
			return fmt.Errorf("load lexicon patterns: %w", err)
		}
		opts = append(opts, lexicon.WithPatterns(patterns...))
	}

	var err error
	switch {
	case cfg.Lexicon.FromStorage:
		d.lexicon, err = lexicon.Load(ctx, d.terms, opts...)
	case cfg.Lexicon.Path != "":
		d.lexicon, err = lexicon.LoadFile(cfg.Lexicon.Path, opts...)
	default:
		d.lexicon = lexicon.Default(opts...)
	}
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}
	return nil
}

func (d *dependencies) initSentiment(cfg *config.Config, log interfaces.Logger) error {
	lex := sentiment.DefaultLexicon()
	if cfg.Sentiment.Path != "" {
		var err error
		if lex, err = sentiment.LoadLexiconFile(cfg.Sentiment.Path); err != nil {
			return fmt.Errorf("load sentiment lexicon: %w", err)
		}
	}
	d.sentiment = sentiment.NewScorer(lex, log)
	return nil
}

func (d *dependencies) initClassifier(cfg *config.Config, log interfaces.Logger) error {
	if cfg.Classifier.APIKey == "" {
		log.Warn("classifier api key not set, every check past sentiment falls back to approval", nil)
		return nil
	}
	adapter, err := ai.NewOpenAIAdapter(ai.OpenAIOptions{
		APIKey:  cfg.Classifier.APIKey,
		BaseURL: cfg.Classifier.BaseURL,
		Model:   cfg.Classifier.Model,
		Timeout: cfg.Moderation.ClassifierTimeout,
	})
	if err != nil {
		return err
	}
	d.classifier = adapter
	return nil
}

func (d *dependencies) initCache(ctx context.Context, cfg *config.Config) error {
	switch cfg.Cache.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func(context.Context) error { return client.Close() })
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(cctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		rc, err := cache.NewRedis(client)
		if err != nil {
			return err
		}
		d.cache = rc
	case "memory":
		d.cache = cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
	}
	return nil
}
