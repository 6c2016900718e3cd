package signal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tvbridge/config"
	"tvbridge/notify"
	"tvbridge/pkg/logger"
	"tvbridge/signal/inbox"
)

// 告警来源
const (
	SourceIMAP = "imap"
	SourceAPI  = "api"
)

// Inbox 收件箱协作方
type Inbox interface {
	Poll(ctx context.Context, handle inbox.Handler) error
}

// Ledger 执行记录存储
type Ledger interface {
	SaveExecution(r *config.ExecutionRecord) error
}

// AlertManager 轮询收件箱并逐条执行告警
// 所有依赖在启动前注入，运行期间只读
type AlertManager struct {
	inbox    Inbox
	executor *Executor
	interval time.Duration

	dedup    Deduper
	ledger   Ledger
	notifier notify.Notifier

	log *zap.Logger
}

// ManagerOption 可选依赖
type ManagerOption func(*AlertManager)

func WithDeduper(d Deduper) ManagerOption {
	return func(m *AlertManager) { m.dedup = d }
}

func WithLedger(l Ledger) ManagerOption {
	return func(m *AlertManager) { m.ledger = l }
}

func WithNotifier(n notify.Notifier) ManagerOption {
	return func(m *AlertManager) { m.notifier = n }
}

// NewAlertManager 创建管理器
func NewAlertManager(ib Inbox, executor *Executor, interval time.Duration, opts ...ManagerOption) *AlertManager {
	m := &AlertManager{
		inbox:    ib,
		executor: executor,
		interval: interval,
		log:      logger.NewModuleLogger("alerts"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run 立即检查一次，然后按间隔轮询，直到 ctx 结束
// 单次轮询失败只记录日志，不退出
func (m *AlertManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("📧 告警轮询已启动", zap.Duration("interval", m.interval))
	m.pollOnce(ctx)

	for {
		select {
		case <-ticker.C:
			m.pollOnce(ctx)
		case <-ctx.Done():
			m.log.Info("告警轮询已停止")
			return
		}
	}
}

func (m *AlertManager) pollOnce(ctx context.Context) {
	if err := m.inbox.Poll(ctx, m.handleMessage); err != nil && ctx.Err() == nil {
		m.log.Error("❌ 收件箱检查失败", zap.Error(err))
	}
	if c, ok := m.dedup.(interface{ Cleanup() }); ok {
		c.Cleanup()
	}
}

func (m *AlertManager) handleMessage(ctx context.Context, msg *inbox.Message) {
	m.handle(ctx, alert{
		id:      msg.MessageID,
		source:  SourceIMAP,
		sender:  msg.From,
		subject: msg.Subject,
		content: msg.Content,
		uid:     msg.UID,
	})
}

// Submit 处理 API 提交的告警，alertID 为空时生成 uuid
func (m *AlertManager) Submit(ctx context.Context, alertID, content string) (string, ExecutionOutcome) {
	if alertID == "" {
		alertID = uuid.NewString()
	}
	outcome := m.handle(ctx, alert{id: alertID, source: SourceAPI, content: content})
	return alertID, outcome
}

type alert struct {
	id      string
	source  string
	sender  string
	subject string
	content string
	uid     uint32
}

func (m *AlertManager) handle(ctx context.Context, a alert) ExecutionOutcome {
	outcome := m.process(ctx, a)

	fields := []zap.Field{
		zap.String("source", a.source),
		zap.String("alert_id", a.id),
		zap.String("from", a.sender),
		zap.String("status", string(outcome.Status)),
		zap.String("detail", outcome.Detail),
	}
	if a.uid != 0 {
		fields = append(fields, zap.Uint32("uid", a.uid))
	}
	switch outcome.Status {
	case StatusExecuted:
		m.log.Info("✅ 告警已执行", fields...)
	case StatusFailed:
		m.log.Error("❌ 告警执行失败", fields...)
	default:
		m.log.Info("⏭️ 告警已忽略", fields...)
	}

	m.record(a, outcome)
	m.notify(ctx, outcome)
	return outcome
}

func (m *AlertManager) process(ctx context.Context, a alert) ExecutionOutcome {
	if m.dedup != nil && a.id != "" {
		dup, err := m.dedup.IsDuplicate(ctx, a.id)
		if err != nil {
			m.log.Warn("去重检查失败，继续处理", zap.String("alert_id", a.id), zap.Error(err))
		} else if dup {
			return Ignored(ReasonDuplicate)
		}
	}
	return m.executor.Process(ctx, a.content)
}

func (m *AlertManager) record(a alert, outcome ExecutionOutcome) {
	if m.ledger == nil {
		return
	}
	err := m.ledger.SaveExecution(&config.ExecutionRecord{
		ID:          uuid.NewString(),
		AlertID:     a.id,
		Source:      a.source,
		Sender:      a.sender,
		Subject:     RedactSecret(a.subject),
		Status:      string(outcome.Status),
		Detail:      outcome.Detail,
		Content:     RedactSecret(a.content),
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		m.log.Error("保存执行记录失败", zap.String("alert_id", a.id), zap.Error(err))
	}
}

func (m *AlertManager) notify(ctx context.Context, outcome ExecutionOutcome) {
	if m.notifier == nil || outcome.Status == StatusIgnored {
		return
	}
	if err := m.notifier.Notify(ctx, outcome.String()); err != nil {
		m.log.Warn("发送通知失败", zap.Error(err))
	}
}
