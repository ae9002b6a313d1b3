package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// ProtocolService defines the methods that the admin handler requires from
// the service layer.
type ProtocolService interface {
	Get(ctx context.Context) (domain.Protocol, error)
	SetPaused(ctx context.Context, caller string, paused bool) error
	SetFeeBps(ctx context.Context, caller string, feeBps uint64) error
	Deposit(ctx context.Context, caller, holder string, amount uint64) (uint64, error)
	Balance(ctx context.Context, holder string) (uint64, error)
}

// AdminHandler serves the protocol settings endpoints.
type AdminHandler struct {
	protocol ProtocolService
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(protocol ProtocolService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		protocol: protocol,
		logger:   logger,
	}
}

// GetProtocol returns the current protocol settings.
// GET /api/protocol
func (h *AdminHandler) GetProtocol(w http.ResponseWriter, r *http.Request) {
	p, err := h.protocol.Get(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get protocol failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get protocol state")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// pauseRequest is the body for the pause endpoint.
type pauseRequest struct {
	Paused bool `json:"paused"`
}

// SetPaused flips the protocol pause switch. Requires the admin key in the
// X-Protocol-Key header.
// POST /api/protocol/pause
func (h *AdminHandler) SetPaused(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.protocol.SetPaused(r.Context(), r.Header.Get(protocolKeyHeader), req.Paused); err != nil {
		h.logger.WarnContext(r.Context(), "handler: set paused failed",
			slog.Bool("paused", req.Paused),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

// feeRequest is the body for the fee endpoint.
type feeRequest struct {
	FeeBps uint64 `json:"fee_bps"`
}

// SetFee updates the protocol trading fee. Requires the admin key in the
// X-Protocol-Key header.
// POST /api/protocol/fee
func (h *AdminHandler) SetFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.protocol.SetFeeBps(r.Context(), r.Header.Get(protocolKeyHeader), req.FeeBps); err != nil {
		h.logger.WarnContext(r.Context(), "handler: set fee failed",
			slog.Uint64("fee_bps", req.FeeBps),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"fee_bps": req.FeeBps})
}

// depositRequest is the body for the collateral deposit endpoint.
type depositRequest struct {
	Holder string `json:"holder"`
	Amount uint64 `json:"amount"`
}

// depositResponse reports the holder's balance after the credit.
type depositResponse struct {
	Holder  string `json:"holder"`
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}

// Deposit credits collateral to a holder's account. Requires the admin key
// in the X-Protocol-Key header.
// POST /api/protocol/deposit
func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := h.protocol.Deposit(r.Context(), r.Header.Get(protocolKeyHeader), req.Holder, req.Amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: deposit failed",
			slog.String("holder", req.Holder),
			slog.Uint64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, depositResponse{
		Holder:  req.Holder,
		Amount:  req.Amount,
		Balance: balance,
	})
}

// GetBalance returns a holder's collateral balance.
// GET /api/accounts/{holder}/balance
func (h *AdminHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	holder := pathParam(r, "holder")
	if holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}

	balance, err := h.protocol.Balance(r.Context(), holder)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get balance failed",
			slog.String("holder", holder),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"holder":  holder,
		"balance": balance,
	})
}
