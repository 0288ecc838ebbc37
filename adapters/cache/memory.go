package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

const DefaultSize = 10000

// Memory is a bounded LRU verdict cache with a single expiry for all entries.
// The ttl passed to Set is ignored; it is fixed when the cache is built.
type Memory struct {
	lru *expirable.LRU[string, models.Verdict]
}

var _ interfaces.VerdictCache = (*Memory)(nil)

// NewMemory creates a cache holding at most size entries for ttl each.
// size <= 0 uses DefaultSize, ttl <= 0 disables expiry.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{lru: expirable.NewLRU[string, models.Verdict](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (models.Verdict, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, verdict models.Verdict, _ time.Duration) error {
	m.lru.Add(key, verdict)
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
