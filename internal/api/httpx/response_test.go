package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varistock/internal/api/httpx"
	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
)

func TestRespond_InsufficientStockCarriesAvailable(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", nil)

	httpx.Respond(rec, req, logger.NewNop(), nil, apperror.NewInsufficientStockError(15, 20), http.StatusCreated)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Category)
	require.NotNil(t, body.Available)
	assert.Equal(t, 15, *body.Available)
}

func TestRespond_UntypedErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)

	httpx.Respond(rec, req, logger.NewNop(), nil, errors.New("boom"), http.StatusOK)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.NotContains(t, rec.Body.String(), "available")
}

func TestRespond_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/products/x", nil)

	httpx.Respond(rec, req, logger.NewNop(), nil, nil, http.StatusNoContent)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	err := httpx.DecodeJSON(rec, req, &dst)
	assert.IsType(t, &apperror.ValidationError{}, err)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err = httpx.DecodeJSON(rec, req, &dst)
	assert.IsType(t, &apperror.ValidationError{}, err)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, httpx.DecodeJSON(rec, req, &dst))
	assert.Equal(t, "ok", dst.Name)
}
