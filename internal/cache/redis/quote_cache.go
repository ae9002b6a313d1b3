package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// quoteTTL bounds how long a stale quote can be served after trading stops.
const quoteTTL = 15 * time.Minute

// QuoteCache implements domain.QuoteCache using Redis hashes. Each market's
// latest curve prices are stored at key "quote:{marketID}" with fields
// "yes_bps", "no_bps" and "ts" (Unix nanosecond timestamp).
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(marketID uint64) string {
	return "quote:" + strconv.FormatUint(marketID, 10)
}

// SetQuote stores the latest YES/NO prices for a market.
func (qc *QuoteCache) SetQuote(ctx context.Context, marketID uint64, yesBps, noBps uint64, ts time.Time) error {
	key := quoteKey(marketID)
	fields := map[string]interface{}{
		"yes_bps": strconv.FormatUint(yesBps, 10),
		"no_bps":  strconv.FormatUint(noBps, 10),
		"ts":      strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %d: %w", marketID, err)
	}
	return nil
}

// GetQuote retrieves the latest YES/NO prices for a market.
// It returns domain.ErrNotFound when no quote has been cached.
func (qc *QuoteCache) GetQuote(ctx context.Context, marketID uint64) (uint64, uint64, time.Time, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(marketID)).Result()
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: get quote %d: %w", marketID, err)
	}
	if len(vals) == 0 {
		return 0, 0, time.Time{}, domain.ErrNotFound
	}

	yesBps, err := strconv.ParseUint(vals["yes_bps"], 10, 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse quote %d yes_bps: %w", marketID, err)
	}
	noBps, err := strconv.ParseUint(vals["no_bps"], 10, 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse quote %d no_bps: %w", marketID, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse quote %d ts: %w", marketID, err)
	}

	return yesBps, noBps, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
