package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// TradeService defines the methods that the trade handler requires from the
// service layer.
type TradeService interface {
	Buy(ctx context.Context, marketID uint64, trader string, req domain.TradeRequest) (domain.Trade, error)
	Sell(ctx context.Context, marketID uint64, trader string, req domain.TradeRequest) (domain.Trade, error)
	ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Trade, error)
}

// TradeHandler serves trading HTTP endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// tradeRequest is the body for the buy and sell endpoints. Amount is
// collateral in for buys and tokens to burn for sells; MinOut is the
// slippage floor on the respective output.
type tradeRequest struct {
	Trader string      `json:"trader"`
	Side   domain.Side `json:"side"`
	Amount uint64      `json:"amount"`
	MinOut uint64      `json:"min_out"`
}

func (h *TradeHandler) execute(w http.ResponseWriter, r *http.Request, direction domain.TradeDirection) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Trader == "" {
		writeError(w, http.StatusBadRequest, "trader is required")
		return
	}

	treq := domain.TradeRequest{Amount: req.Amount, Side: req.Side, MinOut: req.MinOut}

	var (
		trade domain.Trade
		err   error
	)
	if direction == domain.TradeDirectionBuy {
		trade, err = h.trades.Buy(r.Context(), id, req.Trader, treq)
	} else {
		trade, err = h.trades.Sell(r.Context(), id, req.Trader, treq)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: trade failed",
			slog.Uint64("market_id", id),
			slog.String("direction", string(direction)),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// Buy purchases outcome tokens with collateral.
// POST /api/markets/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, domain.TradeDirectionBuy)
}

// Sell burns outcome tokens for collateral.
// POST /api/markets/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, domain.TradeDirectionSell)
}

// listTradesResponse wraps the trade list endpoint output.
type listTradesResponse struct {
	Trades []domain.Trade `json:"trades"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListTrades returns a market's trades, newest first.
// GET /api/markets/{id}/trades
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	opts := parseListOpts(r)
	trades, err := h.trades.ListByMarket(r.Context(), id, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}

	writeJSON(w, http.StatusOK, listTradesResponse{
		Trades: trades,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
