package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ Cache = (*LRU)(nil)

// LRU is an in-process cache bounded by entry count.
type LRU struct {
	cache *expirable.LRU[string, []byte]
}

// NewLRU creates an LRU holding at most size entries, each kept for ttl
// (0 = until evicted).
func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	return &LRU{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.cache.Get(key)
	return v, ok, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.cache.Add(key, value)
	return nil
}

// Len returns the number of live entries.
func (l *LRU) Len() int {
	return l.cache.Len()
}

func (l *LRU) Close() error {
	l.cache.Purge()
	return nil
}
