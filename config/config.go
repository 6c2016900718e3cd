package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// 交易环境
const (
	EnvPractice = "practice"
	EnvLive     = "live"
)

// OandaConfig 券商配置
type OandaConfig struct {
	APIKey         string  `validate:"required"`
	AccountID      string  `validate:"required"`
	Env            string  `validate:"oneof=practice live"`
	TimeoutSeconds int     `validate:"min=1,max=120"`
	RateLimit      float64 `validate:"gte=0"`
}

// Live 是否实盘
func (c OandaConfig) Live() bool {
	return c.Env == EnvLive
}

// Timeout 单次请求超时
func (c OandaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InboxConfig IMAP 收件箱配置
type InboxConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	User        string `validate:"required"`
	Password    string `validate:"required"`
	Mailbox     string `validate:"required"`
	AllowedFrom string
}

// Addr host:port
func (c InboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig 可选的去重存储
type RedisConfig struct {
	Addr     string
	Password string
}

// TelegramConfig 可选的通知渠道
type TelegramConfig struct {
	BotToken string `validate:"required_with=ChatID"`
	ChatID   int64  `validate:"required_with=BotToken"`
}

// Enabled 是否配置了 Telegram
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

// Config 进程级只读配置，启动时解析一次
type Config struct {
	Oanda           OandaConfig
	Inbox           InboxConfig
	SharedSecret    string `validate:"required"`
	PollSeconds     int    `validate:"min=1"`
	DedupTTLSeconds int    `validate:"min=0"`
	Redis           RedisConfig
	Telegram        TelegramConfig
	DBPath          string `validate:"required"`
	APIPort         int    `validate:"min=0,max=65535"`
	APICORSOrigin   string
	LogDir          string
	Debug           bool
}

// PollInterval 轮询间隔
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// DedupTTL 去重窗口，0 表示关闭
func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

// Load 读取 .env（可选）和环境变量并校验
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv 从 getenv 构造配置，便于测试
func FromEnv(getenv func(string) string) (*Config, error) {
	r := envReader{getenv: getenv}

	cfg := &Config{
		Oanda: OandaConfig{
			APIKey:         r.str("OANDA_API_KEY", ""),
			AccountID:      r.str("OANDA_ACCOUNT_ID", ""),
			Env:            strings.ToLower(r.str("OANDA_ENV", EnvPractice)),
			TimeoutSeconds: r.int("OANDA_TIMEOUT_SECONDS", 20),
			RateLimit:      r.float("OANDA_RATE_LIMIT", 10),
		},
		Inbox: InboxConfig{
			Host:        r.str("TV_EMAIL_HOST", ""),
			Port:        r.int("TV_EMAIL_PORT", 993),
			User:        r.str("TV_EMAIL_USER", ""),
			Password:    r.str("TV_EMAIL_PASS", ""),
			Mailbox:     r.str("TV_EMAIL_MAILBOX", "INBOX"),
			AllowedFrom: r.str("TV_ALLOWED_FROM", ""),
		},
		SharedSecret:    r.str("TV_SHARED_SECRET", ""),
		PollSeconds:     r.int("BOT_POLL_SECONDS", 15),
		DedupTTLSeconds: r.int("DEDUP_TTL_SECONDS", 86400),
		Redis: RedisConfig{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
		},
		Telegram: TelegramConfig{
			BotToken: r.str("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   int64(r.int("TELEGRAM_CHAT_ID", 0)),
		},
		DBPath:        r.str("DB_PATH", "data/tvbridge.db"),
		APIPort:       r.int("API_PORT", 0),
		APICORSOrigin: r.str("API_CORS_ORIGIN", ""),
		LogDir:        r.str("LOG_DIR", "logs"),
		Debug:         r.bool("DEBUG", false),
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("环境变量格式错误: %s", strings.Join(r.errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// envNames 字段 -> 环境变量名，用于错误提示
var envNames = map[string]string{
	"Config.Oanda.APIKey":         "OANDA_API_KEY",
	"Config.Oanda.AccountID":      "OANDA_ACCOUNT_ID",
	"Config.Oanda.Env":            "OANDA_ENV",
	"Config.Oanda.TimeoutSeconds": "OANDA_TIMEOUT_SECONDS",
	"Config.Oanda.RateLimit":      "OANDA_RATE_LIMIT",
	"Config.Inbox.Host":           "TV_EMAIL_HOST",
	"Config.Inbox.Port":           "TV_EMAIL_PORT",
	"Config.Inbox.User":           "TV_EMAIL_USER",
	"Config.Inbox.Password":       "TV_EMAIL_PASS",
	"Config.Inbox.Mailbox":        "TV_EMAIL_MAILBOX",
	"Config.SharedSecret":         "TV_SHARED_SECRET",
	"Config.PollSeconds":          "BOT_POLL_SECONDS",
	"Config.DedupTTLSeconds":      "DEDUP_TTL_SECONDS",
	"Config.Telegram.BotToken":    "TELEGRAM_BOT_TOKEN",
	"Config.Telegram.ChatID":      "TELEGRAM_CHAT_ID",
	"Config.DBPath":               "DB_PATH",
	"Config.APIPort":              "API_PORT",
}

// Validate 校验配置，错误信息列出全部有问题的环境变量
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var missing, invalid []string
	for _, fe := range verrs {
		name := envNames[fe.Namespace()]
		if name == "" {
			name = fe.Namespace()
		}
		if fe.Tag() == "required" || fe.Tag() == "required_with" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, fmt.Sprintf("%s(%s)", name, fe.Tag()))
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "缺少环境变量: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "环境变量取值非法: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

type envReader struct {
	getenv func(string) string
	errs   []string
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q 不是整数", key, v))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q 不是数字", key, v))
		return def
	}
	return f
}

func (r *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s=%q 不是布尔值", key, v))
		return def
	}
	return b
}
