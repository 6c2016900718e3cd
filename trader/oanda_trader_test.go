package trader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, body string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got.Method = r.Method
		got.Path = r.URL.EscapedPath()
		got.Auth = r.Header.Get("Authorization")
		got.Body = map[string]interface{}{}
		_ = json.Unmarshal(raw, &got.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOandaTraderBaseURL(t *testing.T) {
	assert.Equal(t, LiveBaseURL, NewOandaTrader("k", "a", true).baseURL)
	assert.Equal(t, PracticeBaseURL, NewOandaTrader("k", "a", false).baseURL)
}

func TestMarketOrder(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusCreated, `{"orderFillTransaction":{"id":"42"}}`, &got)
	tr := NewOandaTrader("secret-key", "101-001", false, WithBaseURL(srv.URL), WithRateLimit(0))

	res, err := tr.MarketOrder(context.Background(), MarketOrder{
		Type:             OrderTypeMarket,
		Instrument:       "EUR_USD",
		Units:            "-50000",
		TimeInForce:      TimeInForceFOK,
		PositionFill:     PositionFillDefault,
		TakeProfitOnFill: &PriceDetails{Price: "1.10500"},
	})
	require.NoError(t, err)
	assert.Contains(t, res, "orderFillTransaction")

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/accounts/101-001/orders", got.Path)
	assert.Equal(t, "Bearer secret-key", got.Auth)

	order := got.Body["order"].(map[string]interface{})
	assert.Equal(t, "MARKET", order["type"])
	assert.Equal(t, "EUR_USD", order["instrument"])
	assert.Equal(t, "-50000", order["units"])
	assert.Equal(t, "FOK", order["timeInForce"])
	assert.Equal(t, "DEFAULT", order["positionFill"])
	assert.Equal(t, map[string]interface{}{"price": "1.10500"}, order["takeProfitOnFill"])
	assert.NotContains(t, order, "stopLossOnFill")
}

func TestMarketOrderNonSuccess(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusBadRequest, `{"errorMessage":"bad units"}`, &got)
	tr := NewOandaTrader("k", "a", false, WithBaseURL(srv.URL))

	_, err := tr.MarketOrder(context.Background(), MarketOrder{Instrument: "EUR_USD", Units: "1"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad units")
	assert.False(t, apiErr.IsNotFound())
}

func TestMarketOrderUndecodableBody(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusCreated, `<html>created</html>`, &got)
	tr := NewOandaTrader("k", "a", false, WithBaseURL(srv.URL))

	res, err := tr.MarketOrder(context.Background(), MarketOrder{
		Type:         OrderTypeMarket,
		Instrument:   "GBP_USD",
		Units:        "1000",
		TimeInForce:  TimeInForceFOK,
		PositionFill: PositionFillDefault,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, res)
	assert.Equal(t, "/accounts/a/orders", got.Path)
}

func TestClosePosition(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"longOrderFillTransaction":{}}`, &got)
	tr := NewOandaTrader("k", "101-001", false, WithBaseURL(srv.URL))

	_, err := tr.ClosePosition(context.Background(), "EUR_USD", NewPositionCloseRequest(CloseSideLong))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/accounts/101-001/positions/EUR_USD/close", got.Path)
	assert.Equal(t, map[string]interface{}{"longUnits": "ALL"}, got.Body)
}

func TestClosePositionNotFound(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusNotFound, `{"errorCode":"CLOSEOUT_POSITION_DOESNT_EXIST"}`, &got)
	tr := NewOandaTrader("k", "a", false, WithBaseURL(srv.URL))

	_, err := tr.ClosePosition(context.Background(), "EUR_USD", NewPositionCloseRequest(CloseSideShort))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, map[string]interface{}{"shortUnits": "ALL"}, got.Body)
}

func TestClosePositionUndecodableBody(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusOK, `not json`, &got)
	tr := NewOandaTrader("k", "a", false, WithBaseURL(srv.URL))

	res, err := tr.ClosePosition(context.Background(), "EUR_USD", NewPositionCloseRequest(CloseSideBoth))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, res)
	assert.Equal(t, map[string]interface{}{"longUnits": "ALL", "shortUnits": "ALL"}, got.Body)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1.10500", FormatPrice(1.105))
	assert.Equal(t, "150.00000", FormatPrice(150))
	assert.Equal(t, "1.23457", FormatPrice(1.234567))
}
