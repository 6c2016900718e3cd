package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier 结果通知
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Telegram 通过 Bot 推送到单个会话
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram 创建 Telegram 通知（会调用 getMe 校验 token）
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram Bot失败: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NewTelegramWithEndpoint 使用自定义 API 地址（format: ".../bot%s/%s"）
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, client tgbotapi.HTTPClient) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram Bot失败: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("发送Telegram消息失败: %w", err)
	}
	return nil
}
