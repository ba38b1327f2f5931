// Package cache stores finished analyses keyed by their inputs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/vytor/fairplay/internal/models"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Key identifies an analysis by everything that influences its result.
func Key(pgn string, th models.Thresholds, topK, depth int) string {
	h := sha256.New()
	h.Write([]byte(pgn))
	fmt.Fprintf(h, "\x00%s|%s|%s|%s|%d|%d",
		strconv.FormatFloat(th.ForcedEval, 'g', -1, 64),
		strconv.FormatFloat(th.CriticalSpread, 'g', -1, 64),
		strconv.FormatFloat(th.DecisiveEval, 'g', -1, 64),
		strconv.FormatFloat(th.LongThinkSeconds, 'g', -1, 64),
		topK, depth)
	return hex.EncodeToString(h.Sum(nil))
}

// Options select and size the cache backend.
type Options struct {
	RedisURL string
	Size     int
	TTL      time.Duration
}

// New returns a Redis cache when RedisURL is set, otherwise an in-process
// LRU.
func New(ctx context.Context, opts Options) (Cache, error) {
	if opts.RedisURL != "" {
		return NewRedis(ctx, opts.RedisURL, opts.TTL)
	}
	return NewLRU(opts.Size, opts.TTL)
}
