package trader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tvbridge/pkg/logger"
)

const (
	LiveBaseURL     = "https://api-fxtrade.oanda.com/v3"
	PracticeBaseURL = "https://api-fxpractice.oanda.com/v3"
)

// OandaTrader OANDA v20 REST 交易器
type OandaTrader struct {
	apiKey    string
	accountID string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	log       *zap.Logger
}

// OandaOption 可选配置
type OandaOption func(*OandaTrader)

// WithBaseURL 覆盖 API 地址（测试使用）
func WithBaseURL(baseURL string) OandaOption {
	return func(t *OandaTrader) { t.baseURL = baseURL }
}

// WithTimeout 设置单次请求超时
func WithTimeout(d time.Duration) OandaOption {
	return func(t *OandaTrader) { t.client.Timeout = d }
}

// WithRateLimit 限制每秒请求数，<=0 表示不限速
func WithRateLimit(perSecond float64) OandaOption {
	return func(t *OandaTrader) {
		if perSecond <= 0 {
			t.limiter = nil
			return
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewOandaTrader 创建OANDA交易器
func NewOandaTrader(apiKey, accountID string, live bool, opts ...OandaOption) *OandaTrader {
	baseURL := PracticeBaseURL
	if live {
		baseURL = LiveBaseURL
	}

	t := &OandaTrader{
		apiKey:    apiKey,
		accountID: accountID,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 20 * time.Second},
		log:       logger.NewModuleLogger("oanda"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// request 发送HTTP请求，返回状态码和响应体
// 状态码判断交给调用方（平仓需要区分 404）
func (t *OandaTrader) request(ctx context.Context, method, endpoint string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal body failed: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response failed: %w", err)
	}

	t.log.Debug("OANDA响应",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode))

	return resp.StatusCode, respBody, nil
}

// MarketOrder 提交市价单
func (t *OandaTrader) MarketOrder(ctx context.Context, order MarketOrder) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("/accounts/%s/orders", url.PathEscape(t.accountID))

	status, respBody, err := t.request(ctx, http.MethodPost, endpoint, MarketOrderRequest{Order: order})
	if err != nil {
		return nil, fmt.Errorf("market order failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: string(respBody)}
	}

	// 2xx 即已成交，响应体无法解析不影响结果
	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.log.Warn("⚠️ 下单响应无法解析", zap.Error(err))
		result = map[string]interface{}{"status": "ok"}
	}

	t.log.Info("📈 市价单已提交",
		zap.String("instrument", order.Instrument),
		zap.String("units", order.Units))
	return result, nil
}

// ClosePosition 平仓
// 404（无此持仓）以 APIError 返回，由调用方决定是否视为成功
func (t *OandaTrader) ClosePosition(ctx context.Context, instrument string, req PositionCloseRequest) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("/accounts/%s/positions/%s/close",
		url.PathEscape(t.accountID), url.PathEscape(instrument))

	status, respBody, err := t.request(ctx, http.MethodPut, endpoint, req)
	if err != nil {
		return nil, fmt.Errorf("close position failed: %w", err)
	}
	if status >= 300 {
		return nil, &APIError{StatusCode: status, Body: string(respBody)}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		result = map[string]interface{}{"status": "ok"}
	}

	t.log.Info("📉 平仓请求已提交",
		zap.String("instrument", instrument),
		zap.String("longUnits", req.LongUnits),
		zap.String("shortUnits", req.ShortUnits))
	return result, nil
}
