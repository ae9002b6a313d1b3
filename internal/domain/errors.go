package domain

import "errors"

// Curve and arithmetic errors. Every arithmetic failure is detected by an
// explicit guard; values never wrap silently.
var (
	ErrInvalidReserves = errors.New("invalid reserves")
	ErrInvalidSupplies = errors.New("invalid token supplies")
	ErrOverflow        = errors.New("arithmetic overflow")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrNoTokensToMint  = errors.New("no tokens to mint")
)

// Trade and settlement errors.
var (
	ErrSlippageExceeded   = errors.New("slippage tolerance exceeded")
	ErrInsufficientTokens = errors.New("cannot burn more tokens than supply")
	ErrNoWinningTokens    = errors.New("no winning tokens to redeem")
)

// Lifecycle errors.
var (
	ErrMarketNotActive = errors.New("market is not active")
	ErrMarketEnded     = errors.New("market has ended")
	ErrMarketNotEnded  = errors.New("market has not ended yet")
	ErrNotResolved     = errors.New("market is not resolved")
	ErrProtocolPaused  = errors.New("protocol is paused")
)

// Market creation errors.
var (
	ErrInvalidEndTime        = errors.New("end time must be in the future")
	ErrInsufficientLiquidity = errors.New("initial liquidity below minimum")
	ErrQuestionTooLong       = errors.New("question exceeds maximum length")
	ErrInvalidSide           = errors.New("invalid outcome side")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// Infrastructure errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrLockHeld            = errors.New("lock already held")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFeeTooHigh          = errors.New("protocol fee exceeds maximum")
)
