package util_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/util"
)

type pingResponse struct {
	Name *string `json:"name"`
}

func (m *pingResponse) Validate(_ strfmt.Registry) error {
	if err := validate.Required("name", "body", m.Name); err != nil {
		return errors.CompositeValidationError(err)
	}
	return nil
}

func TestValidateAndReturn(t *testing.T) {
	e := echo.New()

	name := "ok"
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, util.ValidateAndReturn(c, http.StatusAccepted, &pingResponse{Name: &name}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"name":"ok"}`, rec.Body.String())
}

func TestValidateAndReturnInvalid(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := util.ValidateAndReturn(c, http.StatusOK, &pingResponse{})
	require.Error(t, err)
	assert.False(t, c.Response().Committed)
	assert.Empty(t, rec.Body.String())
}
