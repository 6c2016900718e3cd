package signal

import (
	"fmt"
)

// 告警文本中识别的字段
const (
	FieldSecret     = "SECRET"
	FieldInstrument = "INSTRUMENT"
	FieldAction     = "ACTION"
	FieldQty        = "QTY"
	FieldTP         = "TP"
	FieldSL         = "SL"
)

// ACTION 取值
const (
	ActionLongEntry  = "LONG_ENTRY"
	ActionShortEntry = "SHORT_ENTRY"
	ActionExitLong   = "EXIT_LONG"
	ActionExitShort  = "EXIT_SHORT"
)

// 拒绝原因
const (
	ReasonBadSecret      = "bad secret"
	ReasonMissingFields  = "missing instrument/action"
	ReasonNonPositiveQty = "qty<=0"
	ReasonUnknownAction  = "unknown action"
	ReasonDuplicate      = "duplicate alert"
)

// FieldMap 大写键 -> 值
type FieldMap map[string]string

// Get 取字段值，不存在返回空串
func (m FieldMap) Get(key string) string {
	return m[key]
}

// TradingAction 交易指令（封闭的变体集合）
type TradingAction interface {
	isTradingAction()
}

// LongEntry 开多
type LongEntry struct {
	Instrument string
	Quantity   int64
	TakeProfit *float64
	StopLoss   *float64
}

// ShortEntry 开空
type ShortEntry struct {
	Instrument string
	Quantity   int64
	TakeProfit *float64
	StopLoss   *float64
}

// ExitLong 平多
type ExitLong struct {
	Instrument string
}

// ExitShort 平空
type ExitShort struct {
	Instrument string
}

// Rejected 校验未通过，终止
type Rejected struct {
	Reason string
}

func (LongEntry) isTradingAction()  {}
func (ShortEntry) isTradingAction() {}
func (ExitLong) isTradingAction()   {}
func (ExitShort) isTradingAction()  {}
func (Rejected) isTradingAction()   {}

// OutcomeStatus 处理结果类型
type OutcomeStatus string

const (
	StatusIgnored  OutcomeStatus = "IGNORED"
	StatusExecuted OutcomeStatus = "EXECUTED"
	StatusFailed   OutcomeStatus = "FAILED"
)

// ExecutionOutcome 单条告警的处理结果
type ExecutionOutcome struct {
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail"`
}

func Ignored(reason string) ExecutionOutcome {
	return ExecutionOutcome{Status: StatusIgnored, Detail: reason}
}

func Executed(description string) ExecutionOutcome {
	return ExecutionOutcome{Status: StatusExecuted, Detail: description}
}

func Failed(err error) ExecutionOutcome {
	return ExecutionOutcome{Status: StatusFailed, Detail: err.Error()}
}

func (o ExecutionOutcome) String() string {
	return fmt.Sprintf("%s (%s)", o.Status, o.Detail)
}
