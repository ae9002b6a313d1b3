// Package token provides an in-process implementation of the token ledger
// boundary. Mints are identified by string ids; balances live in memory
// behind a single mutex, so every operation is atomic and either fully
// applies or fails without effect.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// Ledger implements domain.TokenLedger with in-memory balances.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[string]uint64 // mintID -> holder -> amount
	supplies map[string]uint64            // mintID -> total minted
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]map[string]uint64),
		supplies: make(map[string]uint64),
	}
}

// Mint creates amount new units of the mint and credits them to the holder.
func (l *Ledger) Mint(_ context.Context, mintID, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	supply := l.supplies[mintID]
	if supply+amount < supply {
		return fmt.Errorf("token: mint %s to %s: %w", mintID, to, domain.ErrOverflow)
	}
	l.supplies[mintID] = supply + amount
	l.credit(mintID, to, amount)
	return nil
}

// Burn destroys amount units held by the holder. Fails without effect when
// the balance is insufficient.
func (l *Ledger) Burn(_ context.Context, mintID, from string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(mintID, from, amount); err != nil {
		return fmt.Errorf("token: burn %s from %s: %w", mintID, from, err)
	}
	l.supplies[mintID] -= amount
	return nil
}

// Transfer moves amount units between holders. Fails without effect when the
// source balance is insufficient.
func (l *Ledger) Transfer(_ context.Context, mintID, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(mintID, from, amount); err != nil {
		return fmt.Errorf("token: transfer %s from %s: %w", mintID, from, err)
	}
	l.credit(mintID, to, amount)
	return nil
}

// Balance returns the holder's balance for the mint.
func (l *Ledger) Balance(_ context.Context, mintID, holder string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[mintID][holder], nil
}

// Supply returns the total outstanding units of the mint.
func (l *Ledger) Supply(mintID string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supplies[mintID]
}

// credit assumes the mutex is held.
func (l *Ledger) credit(mintID, to string, amount uint64) {
	holders, ok := l.balances[mintID]
	if !ok {
		holders = make(map[string]uint64)
		l.balances[mintID] = holders
	}
	holders[to] += amount
}

// debit assumes the mutex is held.
func (l *Ledger) debit(mintID, from string, amount uint64) error {
	if l.balances[mintID][from] < amount {
		return domain.ErrInsufficientBalance
	}
	l.balances[mintID][from] -= amount
	return nil
}

// Compile-time interface check.
var _ domain.TokenLedger = (*Ledger)(nil)
