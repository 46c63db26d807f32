package httperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	TypeGeneric            = "generic"
	TypeCycleInProgress    = "CYCLE_IN_PROGRESS"
	TypeNoCycle            = "NO_CYCLE"
	TypeBalanceUnavailable = "BALANCE_UNAVAILABLE"
	TypeStopping           = "STOPPING"
)

// HTTPError is the JSON body of every error response.
type HTTPError struct {
	Code  int    `json:"status"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

// NewFromEcho converts an echo error into an HTTPError of type generic.
func NewFromEcho(e *echo.HTTPError) *HTTPError {
	return &HTTPError{
		Code:  e.Code,
		Type:  TypeGeneric,
		Title: fmt.Sprintf("%v", e.Message),
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

// ErrorHandler renders HTTPErrors, validation errors and echo errors as JSON. Anything else
// becomes a 500 without leaking the error text.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code int
		body any
	)
	switch e := err.(type) { //nolint:errorlint
	case *HTTPValidationError:
		code, body = e.Code, e
	case *HTTPError:
		code, body = e.Code, e
	case *echo.HTTPError:
		code, body = e.Code, NewFromEcho(e)
	default:
		c.Logger().Error(err)
		code = http.StatusInternalServerError
		body = NewHTTPError(code, TypeGeneric, http.StatusText(code))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
