package http_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampline/rampline/internal/catalog"
	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/internal/rates"
	"github.com/rampline/rampline/internal/repository"
	"github.com/rampline/rampline/pkg/logger"
)

type rateService struct {
	models.OrderService
	rate float64
}

func (s rateService) GetExchangeRate(_ context.Context, _, _ string) (float64, error) {
	return s.rate, nil
}

func newSettingsServer(t *testing.T) *HTTPServer {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat := catalog.NewStatic(map[models.Blockchain][]*models.Token{
		models.EVMChain(1): {{Symbol: "ETH", RateSymbol: "ETH", Decimals: 18}},
	})
	rateCache := rates.NewCache(rateService{rate: 2000}, db, logger.NewNop())
	return NewHTTPServer(nil, nil, nil, rateCache, cat, nil, db, 0, logger.NewNop())
}

func doJSON(t *testing.T, s *HTTPServer, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func TestPreferredCurrencyRoundTrip(t *testing.T) {
	s := newSettingsServer(t)

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/settings/currency", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", body["currency"])

	// The preference is normalised to upper case on write.
	code, body = doJSON(t, s, http.MethodPut, "/api/v1/settings/currency", `{"currency":"eur"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EUR", body["currency"])

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/settings/currency", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EUR", body["currency"])

	code, _ = doJSON(t, s, http.MethodPut, "/api/v1/settings/currency", `{"currency":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetRateDefaultsToPreferredCurrency(t *testing.T) {
	s := newSettingsServer(t)

	// No explicit currency and no stored preference is an error.
	code, _ := doJSON(t, s, http.MethodGet, "/api/v1/rates?chain_id=1", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, s, http.MethodPut, "/api/v1/settings/currency", `{"currency":"EUR"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/rates?chain_id=1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EUR", body["currency"])
	assert.Equal(t, float64(2000), body["rate"])

	// An explicit query parameter still wins over the preference.
	code, body = doJSON(t, s, http.MethodGet, "/api/v1/rates?chain_id=1&currency=USD", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "USD", body["currency"])
}
