package trader

import (
	"fmt"
	"net/http"
)

const (
	OrderTypeMarket = "MARKET"

	// TimeInForceFOK 全部成交或取消
	TimeInForceFOK = "FOK"

	PositionFillDefault = "DEFAULT"

	// CloseAllUnits 平掉该侧全部单位
	CloseAllUnits = "ALL"
)

// MarketOrderRequest POST /accounts/{id}/orders 的请求体
type MarketOrderRequest struct {
	Order MarketOrder `json:"order"`
}

// MarketOrder 市价单
type MarketOrder struct {
	Type             string        `json:"type"`
	Instrument       string        `json:"instrument"`
	Units            string        `json:"units"`
	TimeInForce      string        `json:"timeInForce"`
	PositionFill     string        `json:"positionFill"`
	TakeProfitOnFill *PriceDetails `json:"takeProfitOnFill,omitempty"`
	StopLossOnFill   *PriceDetails `json:"stopLossOnFill,omitempty"`
}

// PriceDetails 成交后附带的止盈/止损价格
type PriceDetails struct {
	Price string `json:"price"`
}

// CloseSide 平仓方向
type CloseSide string

const (
	CloseSideLong  CloseSide = "long"
	CloseSideShort CloseSide = "short"
	CloseSideBoth  CloseSide = "both"
)

// PositionCloseRequest PUT /accounts/{id}/positions/{instrument}/close 的请求体
type PositionCloseRequest struct {
	LongUnits  string `json:"longUnits,omitempty"`
	ShortUnits string `json:"shortUnits,omitempty"`
}

// NewPositionCloseRequest 按方向构造平仓请求
func NewPositionCloseRequest(side CloseSide) PositionCloseRequest {
	switch side {
	case CloseSideLong:
		return PositionCloseRequest{LongUnits: CloseAllUnits}
	case CloseSideShort:
		return PositionCloseRequest{ShortUnits: CloseAllUnits}
	default:
		return PositionCloseRequest{LongUnits: CloseAllUnits, ShortUnits: CloseAllUnits}
	}
}

// FormatPrice 价格统一格式化为 5 位小数（货币对 pip 精度）
func FormatPrice(p float64) string {
	return fmt.Sprintf("%.5f", p)
}

// APIError 券商返回的非成功状态
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// IsNotFound 券商返回 404（如持仓不存在）
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
