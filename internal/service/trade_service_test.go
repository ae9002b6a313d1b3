package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

func TestTradeServiceBuy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	sub, err := env.bus.Subscribe(ctx, domain.ChannelTrades)
	require.NoError(t, err)

	env.fund(t, "bob", 100_000)
	trade, err := env.tradeSvc.Buy(ctx, m.ID, "bob", domain.TradeRequest{
		Amount: 100_000,
		Side:   domain.SideYes,
		MinOut: 1,
	})
	require.NoError(t, err)

	// 1% fee off the input; the curve prices the remaining 99,000.
	assert.Equal(t, uint64(1_000), trade.Fee)
	assert.Equal(t, uint64(100_000), trade.AmountIn)
	assert.Equal(t, uint64(134_000), trade.AmountOut)
	assert.Equal(t, domain.TradeDirectionBuy, trade.Direction)

	// Only the net amount moves; the buy fee is charged, not collected.
	assert.Equal(t, uint64(1_000), env.balance(t, domain.CollateralMint, "bob"))
	assert.Equal(t, uint64(1_099_000), env.balance(t, domain.CollateralMint, domain.VaultAccount(m.ID)))
	assert.Equal(t, uint64(134_000), env.balance(t, domain.YesMint(m.ID), "bob"))

	stored, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_099_000), stored.Reserves)
	assert.Equal(t, uint64(841_106), stored.YesSupply)
	assert.Equal(t, uint64(707_106), stored.NoSupply)

	// Buying YES moves the YES price up past the balanced point.
	assert.Greater(t, trade.YesPriceBps, uint64(7071))
	assert.Less(t, trade.NoPriceBps, uint64(7071))

	yes, _, _, err := env.quotes.GetQuote(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.YesPriceBps, yes)

	select {
	case msg := <-sub:
		assert.Contains(t, string(msg), domain.EventTokensBought)
	case <-time.After(time.Second):
		t.Fatal("no trade event published")
	}
}

func TestTradeServiceBuySlippageLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)
	env.fund(t, "bob", 100_000)

	_, err := env.tradeSvc.Buy(ctx, m.ID, "bob", domain.TradeRequest{
		Amount: 100_000,
		Side:   domain.SideYes,
		MinOut: 10_000_000,
	})
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	// No collateral moved, no tokens minted, pool untouched.
	assert.Equal(t, uint64(100_000), env.balance(t, domain.CollateralMint, "bob"))
	assert.Zero(t, env.balance(t, domain.YesMint(m.ID), "bob"))

	stored, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), stored.Reserves)
}

func TestTradeServiceBuyGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)
	env.fund(t, "bob", 100_000)
	req := domain.TradeRequest{Amount: 10_000, Side: domain.SideYes}

	t.Run("trading window closed", func(t *testing.T) {
		env.clock.Set(m.EndTime)
		defer env.clock.Set(baseTime)
		_, err := env.tradeSvc.Buy(ctx, m.ID, "bob", req)
		assert.ErrorIs(t, err, domain.ErrMarketEnded)
	})

	t.Run("paused protocol", func(t *testing.T) {
		require.NoError(t, env.protocol.SetPaused(ctx, true))
		defer func() { require.NoError(t, env.protocol.SetPaused(ctx, false)) }()
		_, err := env.tradeSvc.Buy(ctx, m.ID, "bob", req)
		assert.ErrorIs(t, err, domain.ErrProtocolPaused)
	})

	t.Run("unknown market", func(t *testing.T) {
		_, err := env.tradeSvc.Buy(ctx, 42, "bob", req)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lock held", func(t *testing.T) {
		unlock, err := env.locks.Acquire(ctx, marketLockKey(m.ID), time.Second)
		require.NoError(t, err)
		defer unlock()
		_, err = env.tradeSvc.Buy(ctx, m.ID, "bob", req)
		assert.ErrorIs(t, err, domain.ErrLockHeld)
	})

	t.Run("trader without collateral", func(t *testing.T) {
		_, err := env.tradeSvc.Buy(ctx, m.ID, "carol", req)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})
}

func TestTradeServiceSell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	env.fund(t, "bob", 100_000)
	_, err := env.tradeSvc.Buy(ctx, m.ID, "bob", domain.TradeRequest{
		Amount: 100_000,
		Side:   domain.SideYes,
		MinOut: 1,
	})
	require.NoError(t, err)

	trade, err := env.tradeSvc.Sell(ctx, m.ID, "bob", domain.TradeRequest{
		Amount: 50_000,
		Side:   domain.SideYes,
		MinOut: 1,
	})
	require.NoError(t, err)

	// Gross release 39,000; 1% fee retained by the protocol.
	assert.Equal(t, uint64(390), trade.Fee)
	assert.Equal(t, uint64(38_610), trade.AmountOut)
	assert.Equal(t, domain.TradeDirectionSell, trade.Direction)

	// The full gross amount left the vault: net to the seller, fee to the
	// treasury.
	assert.Equal(t, uint64(1_060_000), env.balance(t, domain.CollateralMint, domain.VaultAccount(m.ID)))
	assert.Equal(t, uint64(390), env.balance(t, domain.CollateralMint, domain.TreasuryAccount))
	assert.Equal(t, uint64(1_000+38_610), env.balance(t, domain.CollateralMint, "bob"))
	assert.Equal(t, uint64(84_000), env.balance(t, domain.YesMint(m.ID), "bob"))

	stored, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_060_000), stored.Reserves)
	assert.Equal(t, uint64(791_106), stored.YesSupply)

	// Sell fees accrue on the protocol row.
	p, err := env.protocol.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(390), p.FeesAccrued)
}

func TestTradeServiceSellMoreThanHeld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	env.fund(t, "bob", 100_000)
	_, err := env.tradeSvc.Buy(ctx, m.ID, "bob", domain.TradeRequest{
		Amount: 100_000,
		Side:   domain.SideYes,
		MinOut: 1,
	})
	require.NoError(t, err)

	// The curve accepts the burn (supply covers it) but bob only holds
	// 134,000 tokens, so the ledger rejects it and nothing changes.
	_, err = env.tradeSvc.Sell(ctx, m.ID, "bob", domain.TradeRequest{
		Amount: 200_000,
		Side:   domain.SideYes,
		MinOut: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	stored, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_099_000), stored.Reserves)
	assert.Equal(t, uint64(134_000), env.balance(t, domain.YesMint(m.ID), "bob"))
}

func TestTradeServiceListByMarket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	env.fund(t, "bob", 100_000)
	for i := 0; i < 3; i++ {
		_, err := env.tradeSvc.Buy(ctx, m.ID, "bob", domain.TradeRequest{
			Amount: 10_000,
			Side:   domain.SideNo,
			MinOut: 1,
		})
		require.NoError(t, err)
	}

	trades, err := env.tradeSvc.ListByMarket(ctx, m.ID, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}
