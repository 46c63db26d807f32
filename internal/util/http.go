package util

import (
	"github.com/go-openapi/strfmt"
	"github.com/labstack/echo/v4"
)

type Validatable interface {
	Validate(formats strfmt.Registry) error
}

// ValidateAndReturn writes v as JSON with the given status once it passes its
// own Validate. A response that fails validation is never sent; the error is
// returned and rendered as a 500.
func ValidateAndReturn(c echo.Context, code int, v Validatable) error {
	if err := v.Validate(strfmt.Default); err != nil {
		LogFromContext(c.Request().Context()).Error().Err(err).Msg("Response failed validation")
		return err
	}

	return c.JSON(code, v)
}
