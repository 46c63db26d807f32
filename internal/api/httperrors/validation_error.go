package httperrors

import (
	"fmt"
	"net/http"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/swag"
)

const TypeInvalidParameter = "INVALID_PARAMETER"

// HTTPValidationErrorDetail names one rejected parameter.
type HTTPValidationErrorDetail struct {
	Key   *string `json:"key"`
	In    *string `json:"in"`
	Error *string `json:"error"`
}

// HTTPValidationError is an HTTPError listing the parameters that failed
// validation.
type HTTPValidationError struct {
	HTTPError
	ValidationErrors []*HTTPValidationErrorDetail `json:"validationErrors"`
}

func NewHTTPValidationError(code int, errorType string, title string, details []*HTTPValidationErrorDetail) *HTTPValidationError {
	return &HTTPValidationError{
		HTTPError:        HTTPError{Code: code, Type: errorType, Title: title},
		ValidationErrors: details,
	}
}

// NewFromValidation turns a go-openapi validation result into a 400 listing
// every failed parameter.
func NewFromValidation(title string, err error) *HTTPValidationError {
	details := make([]*HTTPValidationErrorDetail, 0, 1)

	var collect func(err error)
	collect = func(err error) {
		switch e := err.(type) { //nolint:errorlint
		case *errors.CompositeError:
			for _, inner := range e.Errors {
				collect(inner)
			}
		case *errors.Validation:
			details = append(details, &HTTPValidationErrorDetail{
				Key:   swag.String(e.Name),
				In:    swag.String(e.In),
				Error: swag.String(e.Error()),
			})
		default:
			details = append(details, &HTTPValidationErrorDetail{
				Error: swag.String(err.Error()),
			})
		}
	}
	collect(err)

	return NewHTTPValidationError(http.StatusBadRequest, TypeInvalidParameter, title, details)
}

func (e *HTTPValidationError) Error() string {
	return fmt.Sprintf("HTTPValidationError %d (%s): %s", e.Code, e.Type, e.Title)
}
