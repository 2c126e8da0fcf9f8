package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bezva-storefront/internal/common"
)

type qtyPayload struct {
	ProductID string `json:"productId" validate:"required"`
	Qty       int    `json:"qty" validate:"omitempty,min=1"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":0}`))
	var p qtyPayload
	err := common.DecodeJSON(req, &p)
	require.Error(t, err)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, map[string]string{"ProductID": "failed required"}, appErr.Details)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"1","qty":2}`))
	require.NoError(t, common.DecodeJSON(req, &p))
	require.Equal(t, "1", p.ProductID)
	require.Equal(t, 2, p.Qty)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.Error(t, common.DecodeJSON(req, &p))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	common.WriteError(rec, common.NotFound("product not found", errors.New("missing")))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.Equal(t, "product not found", body.Error.Message)

	rec = httptest.NewRecorder()
	common.WriteError(rec, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	require.Equal(t, "10.0.0.9", common.ClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.4")
	require.Equal(t, "192.0.2.4", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	require.Equal(t, "203.0.113.7", common.ClientIP(req))
}

func TestQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/cart?confirm=true", nil)
	require.True(t, common.QueryBool(req, "confirm"))
	req = httptest.NewRequest(http.MethodDelete, "/cart?confirm=nah", nil)
	require.False(t, common.QueryBool(req, "confirm"))
}
