package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// domainStatuses maps sentinel domain errors to HTTP status codes. Anything
// not listed here is treated as an internal error.
var domainStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrProtocolPaused, http.StatusServiceUnavailable},
	{domain.ErrSlippageExceeded, http.StatusConflict},
	{domain.ErrMarketNotActive, http.StatusConflict},
	{domain.ErrMarketEnded, http.StatusConflict},
	{domain.ErrMarketNotEnded, http.StatusConflict},
	{domain.ErrNotResolved, http.StatusConflict},
	{domain.ErrLockHeld, http.StatusConflict},
	{domain.ErrInvalidSide, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidEndTime, http.StatusBadRequest},
	{domain.ErrQuestionTooLong, http.StatusBadRequest},
	{domain.ErrInsufficientLiquidity, http.StatusBadRequest},
	{domain.ErrInsufficientBalance, http.StatusBadRequest},
	{domain.ErrInsufficientTokens, http.StatusBadRequest},
	{domain.ErrNoWinningTokens, http.StatusBadRequest},
	{domain.ErrNoTokensToMint, http.StatusBadRequest},
	{domain.ErrFeeTooHigh, http.StatusBadRequest},
}

// writeDomainError maps err onto an HTTP status and writes the JSON error
// body. Unrecognized errors come back as an opaque 500; the caller is
// expected to have logged them.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range domainStatuses {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
