package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

func TestLedger_MintBurnTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	require.NoError(t, l.Mint(ctx, "collateral", "alice", 1000))

	bal, err := l.Balance(ctx, "collateral", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal)
	assert.Equal(t, uint64(1000), l.Supply("collateral"))

	require.NoError(t, l.Transfer(ctx, "collateral", "alice", "bob", 400))

	aliceBal, _ := l.Balance(ctx, "collateral", "alice")
	bobBal, _ := l.Balance(ctx, "collateral", "bob")
	assert.Equal(t, uint64(600), aliceBal)
	assert.Equal(t, uint64(400), bobBal)
	// Transfers do not change supply.
	assert.Equal(t, uint64(1000), l.Supply("collateral"))

	require.NoError(t, l.Burn(ctx, "collateral", "bob", 400))
	assert.Equal(t, uint64(600), l.Supply("collateral"))
}

func TestLedger_FailsLoudlyWithoutEffect(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.Mint(ctx, "yes:1", "alice", 100))

	err := l.Transfer(ctx, "yes:1", "alice", "bob", 101)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	err = l.Burn(ctx, "yes:1", "alice", 101)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// The failed operations left every balance untouched.
	aliceBal, _ := l.Balance(ctx, "yes:1", "alice")
	bobBal, _ := l.Balance(ctx, "yes:1", "bob")
	assert.Equal(t, uint64(100), aliceBal)
	assert.Equal(t, uint64(0), bobBal)
	assert.Equal(t, uint64(100), l.Supply("yes:1"))
}

func TestLedger_UnknownMint(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	bal, err := l.Balance(ctx, "no:42", "nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)

	err = l.Burn(ctx, "no:42", "nobody", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}
