package httperrors

import (
	"net/http"
)

var (
	ErrConflictCycleInProgress = NewHTTPError(http.StatusConflict, TypeCycleInProgress, "A rebalance cycle is already in progress.")
	ErrNotFoundNoCycle         = NewHTTPError(http.StatusNotFound, TypeNoCycle, "No rebalance cycle has finished yet.")
	ErrBadGatewayBalances      = NewHTTPError(http.StatusBadGateway, TypeBalanceUnavailable, "Balances could not be read.")
	ErrUnavailableStopping     = NewHTTPError(http.StatusServiceUnavailable, TypeStopping, "The rebalancer is shutting down.")
)
