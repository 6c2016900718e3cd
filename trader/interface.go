package trader

import "context"

// Broker 券商下单接口
// 每次调用对应一次网络请求，不在内部重试
type Broker interface {
	// MarketOrder 提交市价单（units 符号表示方向）
	MarketOrder(ctx context.Context, order MarketOrder) (map[string]interface{}, error)

	// ClosePosition 平掉指定品种某一侧（或两侧）的全部持仓
	ClosePosition(ctx context.Context, instrument string, req PositionCloseRequest) (map[string]interface{}, error)
}
