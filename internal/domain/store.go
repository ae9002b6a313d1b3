package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market state. Create assigns the market id atomically
// with the insert, so no two creations can share an id.
type MarketStore interface {
	Create(ctx context.Context, m Market) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (Market, error)
	UpdateState(ctx context.Context, m Market) error
	ListActive(ctx context.Context, opts ListOpts) ([]Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// TradeStore persists executed trades.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Trade, error)
}

// RedemptionStore persists settlement payouts.
type RedemptionStore interface {
	Insert(ctx context.Context, r Redemption) error
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Redemption, error)
}

// ProtocolStore persists the singleton protocol row.
type ProtocolStore interface {
	// Init writes the row if it does not exist yet and returns the current
	// state either way.
	Init(ctx context.Context, p Protocol) (Protocol, error)
	Get(ctx context.Context) (Protocol, error)
	SetPaused(ctx context.Context, paused bool) error
	SetFeeBps(ctx context.Context, feeBps uint64) error
	AccrueFees(ctx context.Context, amount uint64) error
	IncrementMarketCount(ctx context.Context) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// TokenLedger is the external token ledger boundary. All operations are
// atomic and fail loudly; a partial application is never observable.
type TokenLedger interface {
	Mint(ctx context.Context, mintID, to string, amount uint64) error
	Burn(ctx context.Context, mintID, from string, amount uint64) error
	Transfer(ctx context.Context, mintID, from, to string, amount uint64) error
	Balance(ctx context.Context, mintID, holder string) (uint64, error)
}

// Clock supplies the current time. Injected so lifecycle gates are testable.
type Clock interface {
	Now() time.Time
}

// ResolverAuth answers capability checks for privileged operations. The core
// trusts the result; how the caller identity is established is not its
// concern.
type ResolverAuth interface {
	IsResolver(caller string) bool
	IsAdmin(caller string) bool
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides exclusive locking, used to serialize all operations
// against a single market id.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// QuoteCache provides fast access to the latest curve prices per market.
type QuoteCache interface {
	SetQuote(ctx context.Context, marketID uint64, yesBps, noBps uint64, ts time.Time) error
	GetQuote(ctx context.Context, marketID uint64) (yesBps, noBps uint64, ts time.Time, err error)
}

// SignalBus is the fire-and-forget event sink. Core logic never depends on
// delivery.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
