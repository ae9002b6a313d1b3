package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pythmarket/internal/cache/memory"
	"github.com/alanyoungcy/pythmarket/internal/domain"
	"github.com/alanyoungcy/pythmarket/internal/token"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable clock shared across services in a test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testEnv struct {
	markets     *memMarketStore
	trades      *memTradeStore
	redemptions *memRedemptionStore
	protocol    *memProtocolStore
	audit       *memAuditStore
	ledger      *token.Ledger
	locks       *memory.LockManager
	bus         *memory.SignalBus
	quotes      *memory.QuoteCache
	clock       *fakeClock
	notifier    *recordingNotifier
	archiver    *recordingArchiver

	marketSvc   *MarketService
	tradeSvc    *TradeService
	settleSvc   *SettlementService
	protocolSvc *ProtocolService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		markets:     newMemMarketStore(),
		trades:      &memTradeStore{},
		redemptions: &memRedemptionStore{},
		protocol:    newMemProtocolStore(domain.Protocol{FeeBps: 100, MinLiquidity: 1_000_000}),
		audit:       &memAuditStore{},
		ledger:      token.NewLedger(),
		locks:       memory.NewLockManager(),
		bus:         memory.NewSignalBus(),
		quotes:      memory.NewQuoteCache(),
		clock:       &fakeClock{t: baseTime},
		notifier:    &recordingNotifier{},
		archiver:    &recordingArchiver{},
	}

	logger := testLogger()
	auth := NewKeyAuth("resolver-key", "admin-key")
	lockTTL := 10 * time.Second

	env.marketSvc = NewMarketService(env.markets, env.protocol, env.ledger, env.quotes, env.bus, env.audit, env.clock, logger)
	env.tradeSvc = NewTradeService(env.markets, env.trades, env.protocol, env.ledger, env.locks, env.quotes, env.bus, env.clock, lockTTL, logger)
	env.settleSvc = NewSettlementService(env.markets, env.trades, env.redemptions, env.ledger, env.locks, env.bus, env.audit, auth, env.clock, lockTTL, env.notifier, env.archiver, logger)
	env.protocolSvc = NewProtocolService(env.protocol, env.ledger, auth, env.audit, logger)
	return env
}

// fund gives an account collateral to trade with.
func (env *testEnv) fund(t *testing.T, account string, amount uint64) {
	t.Helper()
	require.NoError(t, env.ledger.Mint(context.Background(), domain.CollateralMint, account, amount))
}

// createMarket funds the creator and creates a standard test market ending
// 24 hours after baseTime.
func (env *testEnv) createMarket(t *testing.T) domain.Market {
	t.Helper()
	env.fund(t, "alice", 1_000_000)
	m, err := env.marketSvc.Create(context.Background(), "alice", "Will it rain tomorrow?", baseTime.Add(24*time.Hour), 1_000_000)
	require.NoError(t, err)
	return m
}

func (env *testEnv) balance(t *testing.T, mintID, holder string) uint64 {
	t.Helper()
	bal, err := env.ledger.Balance(context.Background(), mintID, holder)
	require.NoError(t, err)
	return bal
}

func TestMarketServiceCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sub, err := env.bus.Subscribe(ctx, domain.ChannelMarkets)
	require.NoError(t, err)

	m := env.createMarket(t)

	assert.Equal(t, uint64(1), m.ID)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Equal(t, uint64(1_000_000), m.Reserves)
	assert.Equal(t, uint64(707_106), m.YesSupply)
	assert.Equal(t, m.YesSupply, m.NoSupply)

	// Collateral moved from the creator into the vault.
	assert.Equal(t, uint64(0), env.balance(t, domain.CollateralMint, "alice"))
	assert.Equal(t, uint64(1_000_000), env.balance(t, domain.CollateralMint, domain.VaultAccount(m.ID)))

	// Balanced market quotes ~7071 on both sides.
	yes, no, _, err := env.quotes.GetQuote(ctx, m.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7071, float64(yes), 75)
	assert.Equal(t, yes, no)

	p, err := env.protocol.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.MarketCount)

	select {
	case msg := <-sub:
		assert.Contains(t, string(msg), domain.EventMarketCreated)
	case <-time.After(time.Second):
		t.Fatal("no market_created event published")
	}
}

func TestMarketServiceCreateRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, "alice", 10_000_000)
	end := baseTime.Add(24 * time.Hour)

	t.Run("end time in the past", func(t *testing.T) {
		_, err := env.marketSvc.Create(ctx, "alice", "q", baseTime.Add(-time.Hour), 1_000_000)
		assert.ErrorIs(t, err, domain.ErrInvalidEndTime)
	})

	t.Run("liquidity below floor", func(t *testing.T) {
		_, err := env.marketSvc.Create(ctx, "alice", "q", end, 999_999)
		assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	})

	t.Run("question too long", func(t *testing.T) {
		long := make([]byte, domain.MaxQuestionLen+1)
		for i := range long {
			long[i] = 'q'
		}
		_, err := env.marketSvc.Create(ctx, "alice", string(long), end, 1_000_000)
		assert.ErrorIs(t, err, domain.ErrQuestionTooLong)
	})

	t.Run("paused protocol", func(t *testing.T) {
		require.NoError(t, env.protocol.SetPaused(ctx, true))
		defer func() { require.NoError(t, env.protocol.SetPaused(ctx, false)) }()
		_, err := env.marketSvc.Create(ctx, "alice", "q", end, 1_000_000)
		assert.ErrorIs(t, err, domain.ErrProtocolPaused)
	})
}

func TestMarketServiceCreateRollsBackUnfundedMarket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// bob has no collateral, so funding the vault must fail and the
	// half-created market must disappear.
	_, err := env.marketSvc.Create(ctx, "bob", "q", baseTime.Add(24*time.Hour), 1_000_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	n, err := env.markets.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarketServiceGetDerivesEndedStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	got, err := env.marketSvc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusActive, got.Status)

	env.clock.Set(m.EndTime)
	got, err = env.marketSvc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusEnded, got.Status)

	// The stored row still reads active; Ended is a view-only status.
	stored, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusActive, stored.Status)
}

func TestMarketServiceGetUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.marketSvc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarketServicePricesFallsBackToStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	// Wipe the cache so Prices must recompute from pool state.
	env.quotes = memory.NewQuoteCache()
	env.marketSvc.quotes = env.quotes

	yes, no, err := env.marketSvc.Prices(ctx, m.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7071, float64(yes), 75)
	assert.Equal(t, yes, no)

	// The fallback back-fills the cache.
	cachedYes, _, _, err := env.quotes.GetQuote(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, yes, cachedYes)
}
