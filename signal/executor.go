package signal

import (
	"context"
	"fmt"

	"tvbridge/trader"
)

// Executor 告警 -> 订单流水线
// 只持有只读配置，可并发调用
type Executor struct {
	broker trader.Broker
	secret string
}

// NewExecutor 创建流水线
func NewExecutor(broker trader.Broker, secret string) *Executor {
	return &Executor{broker: broker, secret: secret}
}

// Process 处理一条告警文本，返回结果（不会 panic，也不返回 error）
func (e *Executor) Process(ctx context.Context, text string) ExecutionOutcome {
	fields := ParsePayload(text)
	if !ValidateSecret(fields, e.secret) {
		return Ignored(ReasonBadSecret)
	}

	action, err := MapInstruction(fields)
	if err != nil {
		return Failed(err)
	}
	if r, ok := action.(Rejected); ok {
		return Ignored(r.Reason)
	}

	req, err := BuildOrderRequest(action)
	if err != nil {
		return Failed(err)
	}
	if err := req.Submit(ctx, e.broker); err != nil {
		return Failed(fmt.Errorf("%s %s: %w", actionName(action), req.Instrument, err))
	}
	return Executed(Describe(action))
}

// Describe 生成指令摘要，回显品种/数量/TP/SL
func Describe(action TradingAction) string {
	switch a := action.(type) {
	case LongEntry:
		return fmt.Sprintf("%s %s qty=%d tp=%s sl=%s", ActionLongEntry, a.Instrument, a.Quantity, describePrice(a.TakeProfit), describePrice(a.StopLoss))
	case ShortEntry:
		return fmt.Sprintf("%s %s qty=%d tp=%s sl=%s", ActionShortEntry, a.Instrument, a.Quantity, describePrice(a.TakeProfit), describePrice(a.StopLoss))
	case ExitLong:
		return fmt.Sprintf("%s %s", ActionExitLong, a.Instrument)
	case ExitShort:
		return fmt.Sprintf("%s %s", ActionExitShort, a.Instrument)
	case Rejected:
		return a.Reason
	default:
		return fmt.Sprintf("%T", action)
	}
}

func actionName(action TradingAction) string {
	switch action.(type) {
	case LongEntry:
		return ActionLongEntry
	case ShortEntry:
		return ActionShortEntry
	case ExitLong:
		return ActionExitLong
	case ExitShort:
		return ActionExitShort
	default:
		return "UNKNOWN"
	}
}

func describePrice(p *float64) string {
	if p == nil {
		return "none"
	}
	return trader.FormatPrice(*p)
}
