package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// ProtocolService manages protocol-wide settings (the pause switch and the
// trading fee) and the collateral on-ramp. All mutations require the admin
// capability.
type ProtocolService struct {
	protocol domain.ProtocolStore
	ledger   domain.TokenLedger
	auth     domain.ResolverAuth
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewProtocolService creates a ProtocolService with all required dependencies.
func NewProtocolService(
	protocol domain.ProtocolStore,
	ledger domain.TokenLedger,
	auth domain.ResolverAuth,
	audit domain.AuditStore,
	logger *slog.Logger,
) *ProtocolService {
	return &ProtocolService{
		protocol: protocol,
		ledger:   ledger,
		auth:     auth,
		audit:    audit,
		logger:   logger,
	}
}

// Get returns the current protocol state.
func (s *ProtocolService) Get(ctx context.Context) (domain.Protocol, error) {
	p, err := s.protocol.Get(ctx)
	if err != nil {
		return domain.Protocol{}, fmt.Errorf("protocol_service: get: %w", err)
	}
	return p, nil
}

// SetPaused flips the protocol pause switch. While paused, market creation
// and all trading are rejected; resolution and redemption stay available.
func (s *ProtocolService) SetPaused(ctx context.Context, caller string, paused bool) error {
	if !s.auth.IsAdmin(caller) {
		return domain.ErrUnauthorized
	}

	if err := s.protocol.SetPaused(ctx, paused); err != nil {
		return fmt.Errorf("protocol_service: set paused: %w", err)
	}

	if err := s.audit.Log(ctx, "protocol_paused_changed", map[string]any{
		"paused": paused,
	}); err != nil {
		s.logger.WarnContext(ctx, "protocol_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "protocol_service: pause switch changed",
		slog.Bool("paused", paused),
	)
	return nil
}

// SetFeeBps updates the protocol trading fee. The fee applies to trades
// executed after the change; in-flight trades use the fee they loaded.
func (s *ProtocolService) SetFeeBps(ctx context.Context, caller string, feeBps uint64) error {
	if !s.auth.IsAdmin(caller) {
		return domain.ErrUnauthorized
	}
	if feeBps > domain.MaxFeeBps {
		return domain.ErrFeeTooHigh
	}

	if err := s.protocol.SetFeeBps(ctx, feeBps); err != nil {
		return fmt.Errorf("protocol_service: set fee: %w", err)
	}

	if err := s.audit.Log(ctx, "protocol_fee_changed", map[string]any{
		"fee_bps": feeBps,
	}); err != nil {
		s.logger.WarnContext(ctx, "protocol_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "protocol_service: fee changed",
		slog.Uint64("fee_bps", feeBps),
	)
	return nil
}

// Deposit credits collateral to a holder's ledger account. The ledger is the
// system boundary: a deposit records collateral that arrived outside it, so
// only the admin may credit. Without a deposit no account can create markets
// or buy tokens.
func (s *ProtocolService) Deposit(ctx context.Context, caller, holder string, amount uint64) (uint64, error) {
	if !s.auth.IsAdmin(caller) {
		return 0, domain.ErrUnauthorized
	}
	if holder == "" || amount == 0 {
		return 0, domain.ErrInvalidAmount
	}

	if err := s.ledger.Mint(ctx, domain.CollateralMint, holder, amount); err != nil {
		return 0, fmt.Errorf("protocol_service: deposit for %s: %w", holder, err)
	}

	balance, err := s.ledger.Balance(ctx, domain.CollateralMint, holder)
	if err != nil {
		return 0, fmt.Errorf("protocol_service: balance for %s: %w", holder, err)
	}

	if err := s.audit.Log(ctx, "collateral_deposited", map[string]any{
		"holder": holder,
		"amount": amount,
	}); err != nil {
		s.logger.WarnContext(ctx, "protocol_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "protocol_service: collateral deposited",
		slog.String("holder", holder),
		slog.Uint64("amount", amount),
		slog.Uint64("balance", balance),
	)
	return balance, nil
}

// Balance reports a holder's collateral balance.
func (s *ProtocolService) Balance(ctx context.Context, holder string) (uint64, error) {
	balance, err := s.ledger.Balance(ctx, domain.CollateralMint, holder)
	if err != nil {
		return 0, fmt.Errorf("protocol_service: balance for %s: %w", holder, err)
	}
	return balance, nil
}
