package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, creator, question string, endTime time.Time, initialLiquidity uint64) (domain.Market, error)
	Get(ctx context.Context, id uint64) (domain.Market, error)
	List(ctx context.Context, activeOnly bool, opts domain.ListOpts) ([]domain.Market, error)
	Prices(ctx context.Context, id uint64) (yesBps, noBps uint64, err error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// marketID parses the {id} path parameter.
func marketID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(pathParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// createMarketRequest is the body for POST /api/markets.
type createMarketRequest struct {
	Creator          string    `json:"creator"`
	Question         string    `json:"question"`
	EndTime          time.Time `json:"end_time"`
	InitialLiquidity uint64    `json:"initial_liquidity"`
}

// CreateMarket creates and funds a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Creator == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, "creator and question are required")
		return
	}

	market, err := h.markets.Create(r.Context(), req.Creator, req.Question, req.EndTime, req.InitialLiquidity)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create market failed",
			slog.String("creator", req.Creator),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets with pagination. Pass ?status=active to only
// see markets still open for trading.
// GET /api/markets?status=active&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	activeOnly := r.URL.Query().Get("status") == "active"

	markets, err := h.markets.List(r.Context(), activeOnly, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "handler: get market failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// pricesResponse is the body for the prices endpoint. Prices are in basis
// points of one collateral unit per token.
type pricesResponse struct {
	MarketID    uint64 `json:"market_id"`
	YesPriceBps uint64 `json:"yes_price_bps"`
	NoPriceBps  uint64 `json:"no_price_bps"`
}

// GetPrices returns the current YES/NO token prices for a market.
// GET /api/markets/{id}/prices
func (h *MarketHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	yes, no, err := h.markets.Prices(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "handler: get prices failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pricesResponse{
		MarketID:    id,
		YesPriceBps: yes,
		NoPriceBps:  no,
	})
}
