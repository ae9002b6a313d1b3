package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

type quote struct {
	yesBps uint64
	noBps  uint64
	ts     time.Time
}

// QuoteCache implements domain.QuoteCache with a process-local map.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[uint64]quote
}

// NewQuoteCache creates an empty in-process QuoteCache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[uint64]quote)}
}

// SetQuote stores the latest YES/NO prices for a market.
func (qc *QuoteCache) SetQuote(_ context.Context, marketID uint64, yesBps, noBps uint64, ts time.Time) error {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.quotes[marketID] = quote{yesBps: yesBps, noBps: noBps, ts: ts}
	return nil
}

// GetQuote retrieves the latest YES/NO prices for a market.
// It returns domain.ErrNotFound when no quote has been cached.
func (qc *QuoteCache) GetQuote(_ context.Context, marketID uint64) (uint64, uint64, time.Time, error) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	q, ok := qc.quotes[marketID]
	if !ok {
		return 0, 0, time.Time{}, domain.ErrNotFound
	}
	return q.yesBps, q.noBps, q.ts, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
