package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

func TestLockManagerExclusion(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "market:1", time.Second)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "market:1", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// A different key is independent.
	unlock2, err := lm.Acquire(ctx, "market:2", time.Second)
	require.NoError(t, err)
	unlock2()

	unlock()
	unlock() // double release is a no-op

	unlock3, err := lm.Acquire(ctx, "market:1", time.Second)
	require.NoError(t, err)
	unlock3()
}

func TestSignalBusFanOut(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := bus.Subscribe(ctx, "markets")
	require.NoError(t, err)
	sub2, err := bus.Subscribe(ctx, "markets")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "markets", []byte("hello")))

	for _, sub := range []<-chan []byte{sub1, sub2} {
		select {
		case msg := <-sub:
			assert.Equal(t, []byte("hello"), msg)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}

	// Other channels do not receive the message.
	other, err := bus.Subscribe(ctx, "trades")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, "markets", []byte("again")))
	select {
	case msg := <-other:
		t.Fatalf("unexpected message on trades channel: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSignalBusSubscribeClosedOnCancel(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := bus.Subscribe(ctx, "markets")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-sub:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription channel not closed after cancel")
	}
}

func TestQuoteCacheRoundTrip(t *testing.T) {
	qc := NewQuoteCache()
	ctx := context.Background()

	_, _, _, err := qc.GetQuote(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, qc.SetQuote(ctx, 7, 7123, 7019, ts))

	yes, no, got, err := qc.GetQuote(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7123), yes)
	assert.Equal(t, uint64(7019), no)
	assert.True(t, got.Equal(ts))
}
