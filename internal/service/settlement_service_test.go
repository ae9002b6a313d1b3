package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// buyFor funds the trader and buys YES tokens on the given market.
func buyFor(t *testing.T, env *testEnv, marketID uint64, trader string, amount uint64) domain.Trade {
	t.Helper()
	env.fund(t, trader, amount)
	trade, err := env.tradeSvc.Buy(context.Background(), marketID, trader, domain.TradeRequest{
		Amount: amount,
		Side:   domain.SideYes,
		MinOut: 1,
	})
	require.NoError(t, err)
	return trade
}

func TestSettlementServiceResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)
	buyFor(t, env, m.ID, "bob", 100_000)

	t.Run("unauthorized caller", func(t *testing.T) {
		_, err := env.settleSvc.Resolve(ctx, m.ID, "wrong-key", domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("before end time", func(t *testing.T) {
		_, err := env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeYes)
		assert.ErrorIs(t, err, domain.ErrMarketNotEnded)
	})

	t.Run("undetermined outcome", func(t *testing.T) {
		_, err := env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeUndetermined)
		assert.ErrorIs(t, err, domain.ErrInvalidSide)
	})

	env.clock.Set(m.EndTime)

	resolved, err := env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusResolved, resolved.Status)
	assert.Equal(t, domain.OutcomeYes, resolved.Outcome)

	// Resolution notifies operators and archives the trade history.
	assert.Equal(t, []string{domain.EventMarketResolved}, env.notifier.events)
	assert.Equal(t, []uint64{m.ID}, env.archiver.archived)
	assert.Equal(t, 1, env.archiver.trades)

	t.Run("already resolved is terminal", func(t *testing.T) {
		_, err := env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeNo)
		assert.ErrorIs(t, err, domain.ErrMarketNotActive)
	})

	t.Run("admin key also resolves", func(t *testing.T) {
		m2 := func() domain.Market {
			env.clock.Set(baseTime)
			env.fund(t, "alice", 1_000_000)
			m2, err := env.marketSvc.Create(ctx, "alice", "Another question?", baseTime.Add(time.Hour), 1_000_000)
			require.NoError(t, err)
			return m2
		}()
		env.clock.Set(m2.EndTime)
		_, err := env.settleSvc.Resolve(ctx, m2.ID, "admin-key", domain.OutcomeNo)
		assert.NoError(t, err)
	})
}

func TestSettlementServiceCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	_, err := env.settleSvc.Cancel(ctx, m.ID, "resolver-key")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "cancel requires the admin capability")

	cancelled, err := env.settleSvc.Cancel(ctx, m.ID, "admin-key")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.OutcomeUndetermined, cancelled.Outcome)

	// Cancelled markets cannot be resolved or redeemed.
	env.clock.Set(m.EndTime)
	_, err = env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
	_, err = env.settleSvc.Redeem(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotResolved)
}

func TestSettlementServiceRedeem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)
	trade := buyFor(t, env, m.ID, "bob", 100_000)

	sub, err := env.bus.Subscribe(ctx, domain.ChannelRedemptions)
	require.NoError(t, err)

	t.Run("before resolution", func(t *testing.T) {
		_, err := env.settleSvc.Redeem(ctx, m.ID, "bob")
		assert.ErrorIs(t, err, domain.ErrNotResolved)
	})

	env.clock.Set(m.EndTime)
	_, err = env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeYes)
	require.NoError(t, err)

	t.Run("holder without winning tokens", func(t *testing.T) {
		_, err := env.settleSvc.Redeem(ctx, m.ID, "carol")
		assert.ErrorIs(t, err, domain.ErrNoWinningTokens)
	})

	redemption, err := env.settleSvc.Redeem(ctx, m.ID, "bob")
	require.NoError(t, err)

	// bob held 134,000 of the 841,106 outstanding YES tokens against
	// 1,099,000 reserves: floor(134000 * 1099000 / 841106) = 175,086.
	assert.Equal(t, trade.AmountOut, redemption.TokensBurned)
	assert.Equal(t, uint64(175_086), redemption.Payout)
	assert.Equal(t, domain.SideYes, redemption.Side)

	assert.Equal(t, uint64(1_000+175_086), env.balance(t, domain.CollateralMint, "bob"))
	assert.Zero(t, env.balance(t, domain.YesMint(m.ID), "bob"))

	stored, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_099_000-175_086), stored.Reserves)
	assert.Equal(t, uint64(707_106), stored.YesSupply)

	listed, err := env.settleSvc.ListRedemptions(ctx, m.ID, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, redemption.ID, listed[0].ID)

	select {
	case msg := <-sub:
		assert.Contains(t, string(msg), domain.EventPositionRedeemed)
	case <-time.After(time.Second):
		t.Fatal("no redemption event published")
	}

	t.Run("second redemption finds nothing", func(t *testing.T) {
		_, err := env.settleSvc.Redeem(ctx, m.ID, "bob")
		assert.ErrorIs(t, err, domain.ErrNoWinningTokens)
	})
}

func TestSettlementServiceRedeemProportionalSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.createMarket(t)

	traders := []string{"bob", "carol", "dave"}
	amounts := []uint64{120_000, 75_000, 40_000}
	for i, trader := range traders {
		env.fund(t, trader, amounts[i])
		_, err := env.tradeSvc.Buy(ctx, m.ID, trader, domain.TradeRequest{
			Amount: amounts[i],
			Side:   domain.SideYes,
			MinOut: 1,
		})
		require.NoError(t, err)
	}

	env.clock.Set(m.EndTime)
	_, err := env.settleSvc.Resolve(ctx, m.ID, "resolver-key", domain.OutcomeYes)
	require.NoError(t, err)

	before, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)

	var totalPaid uint64
	for _, trader := range traders {
		r, err := env.settleSvc.Redeem(ctx, m.ID, trader)
		require.NoError(t, err)
		totalPaid += r.Payout
	}

	// Redemption order cannot overdraw the pool: payouts never exceed the
	// reserves at resolution, and the vault still covers what is left.
	assert.LessOrEqual(t, totalPaid, before.Reserves)

	after, err := env.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Reserves-totalPaid, after.Reserves)
	assert.Equal(t, after.Reserves, env.balance(t, domain.CollateralMint, domain.VaultAccount(m.ID)))
}
