package signal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPrice TP/SL 无法解析为价格
var ErrInvalidPrice = errors.New("invalid price")

// MapInstruction 将字段映射为唯一的交易指令
// 校验失败返回 Rejected；只有 TP/SL 格式错误返回 error
func MapInstruction(fields FieldMap) (TradingAction, error) {
	instrument := fields.Get(FieldInstrument)
	action := strings.ToUpper(strings.TrimSpace(fields.Get(FieldAction)))
	if instrument == "" || action == "" {
		return Rejected{Reason: ReasonMissingFields}, nil
	}

	switch action {
	case ActionExitLong:
		return ExitLong{Instrument: instrument}, nil
	case ActionExitShort:
		return ExitShort{Instrument: instrument}, nil
	case ActionLongEntry, ActionShortEntry:
	default:
		return Rejected{Reason: ReasonUnknownAction}, nil
	}

	qty := parseQuantity(fields.Get(FieldQty))
	if qty <= 0 {
		return Rejected{Reason: ReasonNonPositiveQty}, nil
	}

	tp, err := parsePrice(FieldTP, fields.Get(FieldTP))
	if err != nil {
		return nil, err
	}
	sl, err := parsePrice(FieldSL, fields.Get(FieldSL))
	if err != nil {
		return nil, err
	}

	if action == ActionLongEntry {
		return LongEntry{Instrument: instrument, Quantity: qty, TakeProfit: tp, StopLoss: sl}, nil
	}
	return ShortEntry{Instrument: instrument, Quantity: qty, TakeProfit: tp, StopLoss: sl}, nil
}

// parseQuantity 缺失或非整数按 0 处理
func parseQuantity(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parsePrice 空串表示不附带；非法数值返回 ErrInvalidPrice
func parsePrice(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidPrice, field, s)
	}
	return &p, nil
}
