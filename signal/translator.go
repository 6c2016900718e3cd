package signal

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tvbridge/trader"
)

// OrderRequest 券商请求，Market 与 Close 二选一
type OrderRequest struct {
	Instrument string
	Market     *trader.MarketOrder
	Close      *trader.PositionCloseRequest
}

// BuildOrderRequest 把交易指令转换为券商请求
func BuildOrderRequest(action TradingAction) (OrderRequest, error) {
	switch a := action.(type) {
	case LongEntry:
		return marketRequest(a.Instrument, a.Quantity, a.TakeProfit, a.StopLoss), nil
	case ShortEntry:
		return marketRequest(a.Instrument, -a.Quantity, a.TakeProfit, a.StopLoss), nil
	case ExitLong:
		req := trader.NewPositionCloseRequest(trader.CloseSideLong)
		return OrderRequest{Instrument: a.Instrument, Close: &req}, nil
	case ExitShort:
		req := trader.NewPositionCloseRequest(trader.CloseSideShort)
		return OrderRequest{Instrument: a.Instrument, Close: &req}, nil
	default:
		return OrderRequest{}, fmt.Errorf("action %T cannot be translated", action)
	}
}

func marketRequest(instrument string, units int64, tp, sl *float64) OrderRequest {
	order := &trader.MarketOrder{
		Type:         trader.OrderTypeMarket,
		Instrument:   instrument,
		Units:        strconv.FormatInt(units, 10),
		TimeInForce:  trader.TimeInForceFOK,
		PositionFill: trader.PositionFillDefault,
	}
	if tp != nil {
		order.TakeProfitOnFill = &trader.PriceDetails{Price: trader.FormatPrice(*tp)}
	}
	if sl != nil {
		order.StopLossOnFill = &trader.PriceDetails{Price: trader.FormatPrice(*sl)}
	}
	return OrderRequest{Instrument: instrument, Market: order}
}

// Submit 发出一次网络请求，不重试
// 平仓时券商返回 404（无持仓）视为成功
func (r OrderRequest) Submit(ctx context.Context, broker trader.Broker) error {
	switch {
	case r.Market != nil:
		_, err := broker.MarketOrder(ctx, *r.Market)
		return err
	case r.Close != nil:
		_, err := broker.ClosePosition(ctx, r.Instrument, *r.Close)
		var apiErr *trader.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil
		}
		return err
	default:
		return errors.New("empty order request")
	}
}
