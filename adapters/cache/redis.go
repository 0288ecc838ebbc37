package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

const keyPrefix = "moderation/verdict/"

// Redis stores JSON-encoded verdicts in redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ interfaces.VerdictCache = (*Redis)(nil)

func NewRedis(client redis.UniversalClient) (*Redis, error) {
	if client == nil {
		return nil, errors.New("cache: redis client is nil")
	}
	return &Redis{client: client, prefix: keyPrefix}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (models.Verdict, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Verdict{}, false, nil
	}
	if err != nil {
		return models.Verdict{}, false, err
	}
	var v models.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		// a corrupt entry is a miss; the next Set overwrites it
		return models.Verdict{}, false, nil
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, verdict models.Verdict, ttl time.Duration) error {
	b, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.prefix+key, b, ttl).Err()
}
