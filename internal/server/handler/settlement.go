package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// protocolKeyHeader carries the shared secret for privileged operations:
// resolution, cancellation and protocol settings.
const protocolKeyHeader = "X-Protocol-Key"

// SettlementService defines the methods that the settlement handler requires
// from the service layer.
type SettlementService interface {
	Resolve(ctx context.Context, marketID uint64, caller string, outcome domain.Outcome) (domain.Market, error)
	Cancel(ctx context.Context, marketID uint64, caller string) (domain.Market, error)
	Redeem(ctx context.Context, marketID uint64, holder string) (domain.Redemption, error)
	ListRedemptions(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Redemption, error)
}

// SettlementHandler serves resolution and redemption HTTP endpoints.
type SettlementHandler struct {
	settlements SettlementService
	logger      *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlements SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlements: settlements,
		logger:      logger,
	}
}

// resolveRequest is the body for the resolve endpoint.
type resolveRequest struct {
	Outcome domain.Outcome `json:"outcome"`
}

// Resolve records a market's outcome. Requires the resolver key in the
// X-Protocol-Key header.
// POST /api/markets/{id}/resolve
func (h *SettlementHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	market, err := h.settlements.Resolve(r.Context(), id, r.Header.Get(protocolKeyHeader), req.Outcome)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: resolve failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// Cancel voids a market. Requires the admin key in the X-Protocol-Key header.
// POST /api/markets/{id}/cancel
func (h *SettlementHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.settlements.Cancel(r.Context(), id, r.Header.Get(protocolKeyHeader))
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: cancel failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// redeemRequest is the body for the redeem endpoint.
type redeemRequest struct {
	Holder string `json:"holder"`
}

// Redeem pays out the holder's winning position on a resolved market.
// POST /api/markets/{id}/redeem
func (h *SettlementHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}

	redemption, err := h.settlements.Redeem(r.Context(), id, req.Holder)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: redeem failed",
			slog.Uint64("market_id", id),
			slog.String("holder", req.Holder),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, redemption)
}

// listRedemptionsResponse wraps the redemption list endpoint output.
type listRedemptionsResponse struct {
	Redemptions []domain.Redemption `json:"redemptions"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ListRedemptions returns a market's redemptions, newest first.
// GET /api/markets/{id}/redemptions
func (h *SettlementHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	opts := parseListOpts(r)
	redemptions, err := h.settlements.ListRedemptions(r.Context(), id, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list redemptions failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []domain.Redemption{}
	}

	writeJSON(w, http.StatusOK, listRedemptionsResponse{
		Redemptions: redemptions,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	})
}
